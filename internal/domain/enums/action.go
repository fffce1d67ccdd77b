package enums

type AdmissionAction string

const (
	AdmissionActionMatchRequest AdmissionAction = "match_request"
)
