package wallet

// Address is the label attached to one instantiated descriptor slot.
// Addresses are keyed by output script in the wallet; a later insert at
// the same script overwrites the label rather than duplicating it.
type Address struct {
	// DescriptorIdx is the index of the owning descriptor in the
	// wallet's descriptor list.
	DescriptorIdx uint32

	// WildcardIdx is the wildcard index the slot was instantiated at.
	// It lies within the owning descriptor's declared range.
	WildcardIdx uint32

	// Created is the free-form creation timestamp supplied by the
	// caller when the label was attached.
	Created string

	// Notes is free-form user text.
	Notes string
}
