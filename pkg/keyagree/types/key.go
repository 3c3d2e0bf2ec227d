package types

// KeyRecord tags an installed key with the cycle that produced it, so a
// caller can tell which rekey round the engine is currently serving.
type KeyRecord struct {
	Key         Key
	InitiatorID ParticipantID
	Counter     uint64
}
