// Package transfer moves values between isolated contexts by copy. A
// value crosses a lane boundary only as serialized bytes; it is never
// shared by reference. Serialization goes through sonic, so anything a
// JSON round trip cannot express is not transferable.
package transfer
