package domain

import "time"

// ContractStatus of a stored contract record.
type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractSuspended ContractStatus = "suspended"
	ContractCancelled ContractStatus = "cancelled"
	ContractExpired   ContractStatus = "expired"
)

// Contract is a school contract record in the store.
type Contract struct {
	ID           int64
	Number       string
	SchoolName   string
	Status       ContractStatus
	MonthlyValue float64
	StartDate    *time.Time
	EndDate      *time.Time
	ContactName  string
	ContactEmail string
	ContactPhone string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SearchText is the free-text corpus the text-similarity matcher indexes.
func (c *Contract) SearchText() string {
	return c.Number + " " + c.SchoolName + " " + c.ContactName + " " + c.Notes
}

// MatchMethod records how a contract candidate was found.
type MatchMethod string

const (
	MatchByContractNumber MatchMethod = "contract_number"
	MatchBySchoolName     MatchMethod = "school_name"
	MatchByTextSimilarity MatchMethod = "text_similarity"
)

// ContractMatch is one candidate from the matching waterfall.
type ContractMatch struct {
	Contract *Contract
	Score    float64
	Method   MatchMethod
}
