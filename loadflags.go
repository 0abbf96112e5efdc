package batchload

type LoadFlag int

const (
	LoadNoBatch   LoadFlag = 1 << iota // Don't use a batcher when loading
	LoadSkipCache                      // Only ask the last layer, the source of truth
)

// check if the given flags is enabled
func hasLoadFlag(def LoadFlag, flags []LoadFlag, flag LoadFlag) bool {
	sum := def
	for _, f := range flags {
		sum = sum | f
	}
	return (sum & flag) == flag
}

func mergeLoadFlags(def LoadFlag, flags []LoadFlag) LoadFlag {
	for _, f := range flags {
		def |= f
	}
	return def
}
