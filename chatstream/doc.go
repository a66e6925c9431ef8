// Package chatstream implements the single-producer/single-consumer event
// pipeline that carries a chat.Event stream from a provider task to whatever
// code is driving the call. A Pipeline hands out a Producer, writable only
// by the provider task, and a Consumer, readable by exactly one caller; the
// two sides communicate only through the pipeline, never through shared
// state.
package chatstream
