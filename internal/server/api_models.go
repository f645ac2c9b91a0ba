package server

import "github.com/raysh454/threatcheck/internal/model"

// VerifyRequest asks for a verdict on a URL or a hash. The hash wins when both
// are set.
type VerifyRequest struct {
	URL  string `json:"url,omitempty" example:"https://example.com/login"`
	Hash string `json:"hash,omitempty" example:"44d88612fea8a8f36de82e1278abb02f"`
}

func (r VerifyRequest) checkRequest() model.CheckRequest {
	return model.CheckRequest{URL: r.URL, Hash: r.Hash}
}

// FileVerifyResponse is a CheckResult plus the digest of the uploaded file.
type FileVerifyResponse struct {
	model.CheckResult
	SHA256   string `json:"sha256" example:"275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f"`
	FileName string `json:"file_name,omitempty" example:"eicar.com"`
	Size     int64  `json:"size" example:"68"`
}

// BatchVerifyRequest verifies several targets in one call.
type BatchVerifyRequest struct {
	Requests    []VerifyRequest `json:"requests"`
	Concurrency int             `json:"concurrency,omitempty" example:"4"`
}

// BatchVerifyResponse carries one result per request, in request order.
type BatchVerifyResponse struct {
	Results []model.CheckResult `json:"results"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
