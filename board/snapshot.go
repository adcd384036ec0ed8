package board

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/CrowderSoup/vieira-boards/database"
)

// snapshotVersion is the version written by this build. Version 0 is the
// browser's bare JSON array of boards.
const snapshotVersion = 1

type snapshot struct {
	Version       int                   `json:"version"`
	ActiveBoardID string                `json:"activeBoardId"`
	Boards        []*database.BoardData `json:"boards"`
}

func encodeSnapshot(activeID string, boards []*database.BoardData) ([]byte, error) {
	data, err := json.Marshal(snapshot{
		Version:       snapshotVersion,
		ActiveBoardID: activeID,
		Boards:        boards,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal boards: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var boards []*database.BoardData
		if err := json.Unmarshal(trimmed, &boards); err != nil {
			return nil, fmt.Errorf("failed to unmarshal boards: %w", err)
		}
		return &snapshot{Version: 0, Boards: boards}, nil
	}

	var snap snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal boards: %w", err)
	}
	if snap.Version > snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return &snap, nil
}
