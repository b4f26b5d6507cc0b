// Package moviepilot provides a client for the MoviePilot download-automation API.
package moviepilot

// State is a subscription state code.
type State string

// Subscription states understood by MoviePilot.
const (
	StateNew     State = "N"
	StateRunning State = "R"
	StatePending State = "P"
	StateStopped State = "S"
)

// mediaTypeTV is MoviePilot's media type label for series.
const mediaTypeTV = "电视剧"

// Subscription is a season subscription.
type Subscription struct {
	ID           int    `json:"id,omitempty"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	TMDBID       int64  `json:"tmdbid"`
	Season       int    `json:"season"`
	State        State  `json:"state,omitempty"`
	TotalEpisode int    `json:"total_episode,omitempty"`
	BestVersion  int    `json:"best_version,omitempty"` // 1 re-downloads until the best release is found
}

// SubscribeRequest describes a subscription to create.
type SubscribeRequest struct {
	Name         string
	TMDBID       int64
	Season       int
	State        State
	TotalEpisode int  // 0 keeps MoviePilot's own count
	Upgrade      bool // best-version mode
}

// TransferRecord is one entry of the transfer (organise) history.
type TransferRecord struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	TMDBID   int64  `json:"tmdbid"`
	Seasons  string `json:"seasons"` // "S01"
	Episodes string `json:"episodes"`
	SrcPath  string `json:"src"`
	DestPath string `json:"dest"`
	Hash     string `json:"download_hash"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ID int `json:"id"`
	} `json:"data"`
}

type historyPage struct {
	Success bool `json:"success"`
	Data    struct {
		List  []TransferRecord `json:"list"`
		Total int              `json:"total"`
	} `json:"data"`
}
