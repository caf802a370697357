package domain

// EntityType names a family of values the parser extracts.
type EntityType string

const (
	EntityContractNumber EntityType = "contract_number"
	EntitySchoolName     EntityType = "school_name"
	EntityDate           EntityType = "date"
	EntityMonetaryValue  EntityType = "monetary_value"
	EntityDeadline       EntityType = "deadline"
	EntityPhone          EntityType = "phone"
	EntityEmail          EntityType = "email"
)

// EntitySet maps entity families to their extracted values,
// deduplicated and in first-seen order.
type EntitySet map[EntityType][]string

// Add appends a value if the family does not already hold it.
func (s EntitySet) Add(t EntityType, value string) {
	if value == "" {
		return
	}
	for _, v := range s[t] {
		if v == value {
			return
		}
	}
	s[t] = append(s[t], value)
}

// Has reports whether the family holds at least one value.
func (s EntitySet) Has(t EntityType) bool {
	return len(s[t]) > 0
}

// First returns the first value of a family, or "".
func (s EntitySet) First(t EntityType) string {
	if len(s[t]) == 0 {
		return ""
	}
	return s[t][0]
}

// Count returns the total number of extracted values across families.
func (s EntitySet) Count() int {
	n := 0
	for _, vs := range s {
		n += len(vs)
	}
	return n
}
