package types

// ContractFilter narrows contract listings, typically to the contracts of one payment profile
// selected by a renewal batch.
type ContractFilter struct {
	*QueryFilter

	ContractIDs      []string `json:"contract_ids,omitempty" form:"contract_ids"`
	PaymentProfileID string   `json:"payment_profile_id,omitempty" form:"payment_profile_id"`
	// IncludeCancelled keeps contracts that carry a cancellation date
	IncludeCancelled bool `json:"include_cancelled,omitempty" form:"include_cancelled"`
}

// NewNoLimitContractFilter returns an unpaginated contract filter
func NewNoLimitContractFilter() *ContractFilter {
	return &ContractFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *ContractFilter) Validate() error {
	if f == nil {
		return nil
	}
	return f.QueryFilter.Validate()
}
