package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"group-service/internal/models"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func decodeClientFrame(payload []byte) (models.ClientFrame, error) {
	var frame models.ClientFrame
	err := json.Unmarshal(payload, &frame)
	return frame, err
}
