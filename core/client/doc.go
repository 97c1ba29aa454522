// Package client is the Model Client: it sends a conversation and the tool
// declarations to an [ai.Provider] and returns a tagged [Response], either a
// final answer or an ordered list of tool invocation requests.
//
// Provider failures never escape [Client.Complete]; they are turned into a
// final response whose text starts with "Error: " so that a tool-use loop
// always terminates with something to show the user.
package client
