package models

// Member represents a person who contributes to and receives from groups.
//
// Registration and authentication happen elsewhere; the engine only needs the
// phone reference for money movement and the KYC flag for payouts.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	// Name is the display name of the member.
	Name string

	// Phone is the mobile-money reference used to debit and credit the member.
	Phone string

	// KYCVerified is set once identity verification has passed.
	KYCVerified bool

	// CreatedAt is the Unix timestamp when the member was created.
	CreatedAt int64
}
