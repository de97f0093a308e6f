package authsdk

// AuthResponse is the body of a successful authentication.
type AuthResponse struct {
	Message string   `json:"message"`
	Auth    bool     `json:"auth"`
	Groups  []string `json:"groups"`

	// Token is nil when token issuance is disabled server-side.
	Token *string `json:"jwt"`
}

// AuthFailure is the body of a rejected authentication.
type AuthFailure struct {
	Message string `json:"message"`
	Auth    bool   `json:"auth"`
}

// RenewResponse is the body of a successful token renewal.
type RenewResponse struct {
	Message string `json:"message"`
	Token   string `json:"jwt"`
}

// VerifyResponse is the body of a token verification.
type VerifyResponse struct {
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}

// VersionResponse is the body of the version endpoint.
type VersionResponse struct {
	App     string `json:"app"`
	Version string `json:"version"`
}
