package dto

type DiscoverResponse struct {
	CandidateIDs []int64 `json:"candidate_ids"`
}
