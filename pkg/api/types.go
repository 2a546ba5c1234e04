package api

import (
	"time"

	"github.com/dd0wney/cluso-pipenet/pkg/tools"
)

// Dataset describes the snapshot the server is answering from.
type Dataset struct {
	Origin       string        `json:"origin"`
	Digest       string        `json:"digest"`
	Bytes        int           `json:"bytes"`
	LoadDuration time.Duration `json:"load_duration_ns"`
	LoadedAt     time.Time     `json:"loaded_at"`
}

// ToolsResponse lists the available tools.
type ToolsResponse struct {
	Tools []tools.ToolDefinition `json:"tools"`
	Count int                    `json:"count"`
}

// InfoResponse describes the running server and its dataset.
type InfoResponse struct {
	Version    string  `json:"version"`
	Uptime     string  `json:"uptime"`
	Dataset    Dataset `json:"dataset"`
	Shapes     int     `json:"shapes"`
	PipeGroups int     `json:"pipe_groups"`
	Skipped    int     `json:"skipped_records"`
}
