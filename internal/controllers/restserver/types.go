package restserver

import "github.com/chrissnell/haldane/internal/deco"

// NDLResponse is the answer to a hypothetical square profile query.
type NDLResponse struct {
	Depth     float64 `json:"depth_m"`
	Minutes   float64 `json:"minutes"`
	NDL       int     `json:"ndl_minutes"`
	NDLText   string  `json:"ndl"`
	Unlimited bool    `json:"unlimited"`
	Ceiling   float64 `json:"ceiling_m"`
}

// TissuesResponse carries the compartment snapshot of the running session.
type TissuesResponse struct {
	SessionID string        `json:"session_id,omitempty"`
	Elapsed   float64       `json:"elapsed_minutes"`
	Tissues   []deco.Tissue `json:"tissues"`
}

// ErrorResponse is written with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
