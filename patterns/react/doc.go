// Package react implements the bounded tool-use loop: the model is called
// with the conversation and the tool declarations, every tool it requests is
// dispatched in order and answered with one correlated result, and the model
// is called again, until it gives a final answer or the call budget runs out.
//
// Each round in which the model requests tools consumes one unit of budget.
// When the budget is zero the loop stops with [BudgetExhaustedMessage]
// without calling the model.
package react
