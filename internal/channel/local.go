package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/direclaw/direclaw/internal/fsutil"
	"github.com/direclaw/direclaw/internal/queue"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// LocalAdapter is the in-process channel backing the CLI's `send` and
// `attach` verbs: `send` drops a request file into <root>/requests/, this
// adapter's Poll picks it up and shapes a queue.Message, and Deliver
// writes the reply into <root>/replies/<messageId>.json for `attach` to
// tail. No network surface, no external process, everything here is
// plain file rename, mirroring internal/queue.Store's own contract.
type LocalAdapter struct {
	root string
}

// LocalRequest is the payload the `send` CLI command writes.
type LocalRequest struct {
	Sender         string   `json:"sender"`
	SenderID       string   `json:"senderId"`
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId,omitempty"`
	Files          []string `json:"files,omitempty"`
	MessageID      string   `json:"messageId"`
	Timestamp      int64    `json:"timestamp"`
}

// NewLocalAdapter returns a LocalAdapter rooted at <stateRoot>/local.
func NewLocalAdapter(stateRoot string) *LocalAdapter {
	return &LocalAdapter{root: filepath.Join(stateRoot, "local")}
}

func (a *LocalAdapter) requestsDir() string { return filepath.Join(a.root, "requests") }
func (a *LocalAdapter) repliesDir() string  { return filepath.Join(a.root, "replies") }

// ChannelID implements Adapter.
func (a *LocalAdapter) ChannelID() string { return "local" }

// WriteRequest is called by the `send` CLI command (in-process, via the
// control-plane handler) to enqueue one local message for pickup.
func (a *LocalAdapter) WriteRequest(req *LocalRequest) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("channel: marshal local request: %w", err)
	}
	path := filepath.Join(a.requestsDir(), req.MessageID+".json")
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

// Poll implements Adapter: it reads every pending request file, shapes it
// into a queue.Message, and removes the request file so it is not
// re-delivered on the next tick.
func (a *LocalAdapter) Poll(ctx context.Context) ([]*queue.Message, error) {
	entries, err := os.ReadDir(a.requestsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &direrrors.QueueIoError{Path: a.requestsDir(), Kind: "read", Cause: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	msgs := make([]*queue.Message, 0, len(names))
	for _, name := range names {
		path := filepath.Join(a.requestsDir(), name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // picked up by a concurrent poll, not an error
			}
			return msgs, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
		}

		var req LocalRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = os.Remove(path)
			continue
		}

		msgs = append(msgs, &queue.Message{
			Channel:        a.ChannelID(),
			Sender:         req.Sender,
			SenderID:       req.SenderID,
			Message:        req.Message,
			Timestamp:      req.Timestamp,
			MessageID:      req.MessageID,
			ConversationID: req.ConversationID,
			Files:          req.Files,
			IsDirect:       true,
		})

		_ = os.Remove(path)
	}

	return msgs, nil
}

// Deliver implements Adapter: it writes the shaped reply to replies/ for
// the `attach` command to tail.
func (a *LocalAdapter) Deliver(ctx context.Context, out *queue.OutgoingMessage) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("channel: marshal local reply: %w", err)
	}
	path := filepath.Join(a.repliesDir(), out.MessageID+".json")
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

// ReadReply is called by the `attach` CLI command to fetch a delivered
// reply for a given message id, once available.
func (a *LocalAdapter) ReadReply(messageID string) (*queue.OutgoingMessage, bool, error) {
	path := filepath.Join(a.repliesDir(), messageID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
	}
	var out queue.OutgoingMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, &direrrors.PayloadInvalidError{Path: path, Reason: err.Error()}
	}
	return &out, true, nil
}
