package cansource

import "time"

// nowUnix stamps a frame with the integer-second wall clock, the clock
// source the engine's t parameter is defined against (§1 "Wall-clock
// source").
func nowUnix() uint32 {
	return uint32(time.Now().Unix())
}
