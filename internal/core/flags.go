package core

// TransactionStatus is a combinable bitmask of user-controlled transaction
// states. Flags are combined with | and queried through the accessors.
type TransactionStatus uint8

const (
	StatusHidden TransactionStatus = 1 << iota
	StatusExcludeFromBalance
	StatusRecurring
)

func (s TransactionStatus) Hidden() bool             { return s&StatusHidden != 0 }
func (s TransactionStatus) ExcludeFromBalance() bool { return s&StatusExcludeFromBalance != 0 }
func (s TransactionStatus) Recurring() bool          { return s&StatusRecurring != 0 }

// With returns the status with the given flags set.
func (s TransactionStatus) With(flags TransactionStatus) TransactionStatus {
	return s | flags
}

// Without returns the status with the given flags cleared.
func (s TransactionStatus) Without(flags TransactionStatus) TransactionStatus {
	return s &^ flags
}

// ProcessingStatus tracks how far merchant recognition got for a
// transaction. Zero means unprocessed.
type ProcessingStatus uint8

const (
	ProcessingMerchantRecognized ProcessingStatus = 1 << iota
	ProcessingMerchantUnrecognized
	ProcessingMultipleBusinesses
	ProcessingMerchantOverridden
)

// ProcessingUnprocessed is the zero value: no recognition pass has run yet.
const ProcessingUnprocessed ProcessingStatus = 0

func (p ProcessingStatus) Unprocessed() bool  { return p == ProcessingUnprocessed }
func (p ProcessingStatus) Recognized() bool   { return p&ProcessingMerchantRecognized != 0 }
func (p ProcessingStatus) Unrecognized() bool { return p&ProcessingMerchantUnrecognized != 0 }
func (p ProcessingStatus) Multiple() bool     { return p&ProcessingMultipleBusinesses != 0 }
func (p ProcessingStatus) Overridden() bool   { return p&ProcessingMerchantOverridden != 0 }

// With returns the status with the given flags set.
func (p ProcessingStatus) With(flags ProcessingStatus) ProcessingStatus {
	return p | flags
}

// Without returns the status with the given flags cleared.
func (p ProcessingStatus) Without(flags ProcessingStatus) ProcessingStatus {
	return p &^ flags
}
