package common

// LampState is one of the four two-bit J1939 lamp indicators common to
// every DTC in a DM1 message: {0,1,2,3} = off / on / unavailable / reserved
// depending on the lamp (the exact meaning is out of scope for the
// parser; only the bit pattern is preserved).
type LampState uint8

// Lamps bundles the four DM1 lamp indicators carried by the prefix byte
// (§4.2, §6 bit layout: MIL[2] | RSL[2] | AWL[2] | PL[2]).
type Lamps struct {
	MIL LampState `json:"mil"`
	RSL LampState `json:"rsl"`
	AWL LampState `json:"awl"`
	PL  LampState `json:"pl"`
}

// Key is a DTC's identity: the triple (src, spn, fmi). Two DTCs are the
// same iff all three match (§3).
type Key struct {
	Src uint8  `json:"src"`
	SPN uint32 `json:"spn"` // 19 significant bits
	FMI uint8  `json:"fmi"` // 5 significant bits
}

// Payload is a DTC's mutable metadata: cm is fixed at first sighting, oc
// and the lamps are rewritten on every observation (§3).
type Payload struct {
	CM    uint8 `json:"cm"` // 1 bit, conversion method, fixed at first sighting
	OC    uint8 `json:"oc"` // 7 bits, occurrence counter
	Lamps Lamps `json:"lamps"`
}

// Record is a DTC record as held in the Registry's candidate or active
// set: identity, mutable payload, and the timestamps/read-count the
// debounce policy operates on (§3).
type Record struct {
	Key       Key     `json:"key"`
	Payload   Payload `json:"payload"`
	FirstSeen uint32  `json:"first_seen"`
	LastSeen  uint32  `json:"last_seen"`
	ReadCount uint16  `json:"read_count"`
}
