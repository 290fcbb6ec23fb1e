package game

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Unmarshalling counterparts for the snapshot types, used when a cached
// snapshot is read back from redis.

func (c *Card) UnmarshalJSON(data []byte) error {
	var in struct {
		ID        string `json:"id"`
		Value     *int   `json:"value"`
		IsVisible bool   `json:"isVisible"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	id, err := uuid.Parse(in.ID)
	if err != nil {
		return err
	}
	c.ID = id
	c.Visible = in.IsVisible
	if in.Value != nil {
		c.Value = *in.Value
	}
	return nil
}

func (cs *ConnectionStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "connection-lost":
		*cs = ConnectionLost
	case "disconnected":
		*cs = Disconnected
	default:
		*cs = Connected
	}
	return nil
}

func (rs *RoundScore) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*rs = RoundScore{Score: n}
		return nil
	}
	*rs = RoundScore{Skipped: true}
	return nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "playing":
		*s = Playing
	case "finished":
		*s = Finished
	case "stopped":
		*s = Stopped
	default:
		*s = Lobby
	}
	return nil
}

func (rs *RoundState) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "active":
		*rs = RoundActive
	case "lastLap":
		*rs = LastLap
	case "over":
		*rs = RoundOver
	default:
		*rs = WaitingInitialReveal
	}
	return nil
}

func (ts *TurnState) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "throwOrReplace":
		*ts = ThrowOrReplace
	case "replaceACard":
		*ts = ReplaceACard
	case "turnACard":
		*ts = TurnACard
	default:
		*ts = ChooseAPile
	}
	return nil
}
