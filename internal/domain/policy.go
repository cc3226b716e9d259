package domain

const PurposeTraining = "training"

type UsageInput struct {
	Purpose     string        `json:"purpose"`
	ContentHash string        `json:"content_hash"`
	Status      LicenseStatus `json:"status"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
