// Package fmicore provides the value types, status codes, and error
// taxonomy shared by every layer of the Model-Exchange integration core:
//
//   - [StateVector]: the continuous-state vector owned by the Driver
//   - [EventIndicators]: the sign-change detector's input signal
//   - [Status]: the five-valued {ok, warning, discard, error, fatal} result
//   - [PendingEvent]: the "upcoming event" latch, modeled as a sum type
//   - [Error]: a typed, wrapped error carrying an [ErrorKind] and a [Status]
//
// Nothing in this package touches a foreign model or a numerical stepper;
// it exists so that [package modelhandle], [package steppers],
// [package engine], and [package driver] can share one vocabulary.
package fmicore
