package constants

const (
	DEFAULT_OFFSET       = uint64(0)
	DEFAULT_PAGE_LIMIT   = 20
	MAX_PAGE_LIMIT       = 100
	MIN_PASSWORD_LENGTH  = 8
	MAX_NAME_LENGTH      = 120
	MAX_REFERENCE_LENGTH = 128
	MAX_PROOF_LENGTH     = 512
)
