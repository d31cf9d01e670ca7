package runtime

import (
	"encoding/json"
	"io"

	"github.com/docker/docker/pkg/jsonmessage"
)

// streamPullProgress decodes the Docker daemon's newline-delimited JSON
// progress stream and forwards a normalized ProgressEvent per message to
// progress. It returns the first error reported by the daemon itself
// (jsonmessage.JSONError), if any.
func streamPullProgress(r io.Reader, progress ProgressFunc) error {
	decoder := json.NewDecoder(r)

	for {
		var msg jsonmessage.JSONMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if msg.Error != nil {
			return msg.Error
		}

		if progress == nil {
			continue
		}

		event := ProgressEvent{
			LayerID: msg.ID,
			Phase:   msg.Status,
		}
		if msg.Progress != nil {
			event.Current = msg.Progress.Current
			event.Total = msg.Progress.Total
			event.Detail = msg.Progress.String()
		}
		progress(event)
	}
}
