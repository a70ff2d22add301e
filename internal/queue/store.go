package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/direclaw/direclaw/internal/fsutil"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// ErrAlreadyClaimed is returned by Claim when the incoming file has already
// been moved by another worker; it is not a failure, just a race the caller
// should treat as "nothing to do".
var ErrAlreadyClaimed = errors.New("queue: already claimed")

// Store is the durable, ordered, atomic message store for one orchestrator
// runtime root, backed by three sibling directories: queue/incoming,
// queue/processing, queue/outgoing (plus queue/rejected for malformed
// payloads and queue/logs for recovery actions).
type Store struct {
	root string // <orchestrator_runtime_root>/queue
}

// NewStore returns a Store rooted at <orchestratorRuntimeRoot>/queue.
func NewStore(orchestratorRuntimeRoot string) *Store {
	return &Store{root: filepath.Join(orchestratorRuntimeRoot, "queue")}
}

func (s *Store) incomingDir() string   { return filepath.Join(s.root, "incoming") }
func (s *Store) processingDir() string { return filepath.Join(s.root, "processing") }
func (s *Store) outgoingDir() string   { return filepath.Join(s.root, "outgoing") }
func (s *Store) rejectedDir() string   { return filepath.Join(s.root, "rejected") }
func (s *Store) logsDir() string       { return filepath.Join(s.root, "logs") }

// Entry describes one incoming-file listing result.
type Entry struct {
	Filename string
	ModTime  time.Time
}

// ListIncoming returns incoming/ filenames sorted ascending by on-disk
// mtime, ties broken lexically.
func (s *Store) ListIncoming() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.incomingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &direrrors.QueueIoError{Path: s.incomingDir(), Kind: "read", Cause: err}
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, &direrrors.QueueIoError{Path: filepath.Join(s.incomingDir(), de.Name()), Kind: "stat", Cause: err}
		}
		entries = append(entries, Entry{Filename: de.Name(), ModTime: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].Filename < entries[j].Filename
		}
		return entries[i].ModTime.Before(entries[j].ModTime)
	})
	return entries, nil
}

// ListOutgoing returns outgoing/ filenames, unsorted (delivery order
// across channels doesn't matter the way incoming claim order does;
// each file belongs to a single conversation already resolved by the
// engine, so there is no per-key ordering left to preserve).
func (s *Store) ListOutgoing() ([]string, error) {
	dirEntries, err := os.ReadDir(s.outgoingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &direrrors.QueueIoError{Path: s.outgoingDir(), Kind: "read", Cause: err}
	}
	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		names = append(names, de.Name())
	}
	return names, nil
}

// ReadOutgoing loads and parses an OutgoingMessage by filename.
func (s *Store) ReadOutgoing(filename string) (*OutgoingMessage, error) {
	path := filepath.Join(s.outgoingDir(), filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAlreadyClaimed
		}
		return nil, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
	}
	var out OutgoingMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &direrrors.PayloadInvalidError{Path: path, Reason: err.Error()}
	}
	return &out, nil
}

// DeleteOutgoing removes a delivered outgoing/ file. Idempotent: deleting
// an already-gone file is not an error, since a channel adapter retrying
// after a crash may see it twice.
func (s *Store) DeleteOutgoing(filename string) error {
	path := filepath.Join(s.outgoingDir(), filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

// ReadIncoming loads and parses a message from incoming/ (used before
// claiming, to compute its OrderingKey). A parse failure quarantines the
// file to rejected/ and returns PayloadInvalidError.
func (s *Store) ReadIncoming(filename string) (*Message, error) {
	return s.readMessage(filepath.Join(s.incomingDir(), filename))
}

func (s *Store) readMessage(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAlreadyClaimed
		}
		return nil, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		s.quarantine(path, fmt.Sprintf("json parse: %v", err))
		return nil, &direrrors.PayloadInvalidError{Path: path, Reason: err.Error()}
	}
	if m.MessageID == "" {
		s.quarantine(path, "missing messageId")
		return nil, &direrrors.PayloadInvalidError{Path: path, Reason: "missing messageId"}
	}
	return &m, nil
}

// WriteIncoming atomically writes msg into incoming/, named by its stable
// message id per spec §3. For in-process producers (the local and
// heartbeat channel adapters); an external adapter process (e.g. a Slack
// bridge) would write the same file by the same convention without
// needing this package at all; the queue's only contract with producers
// is the directory layout and filename rule, never an API call.
func (s *Store) WriteIncoming(msg *Message) error {
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: marshal incoming message: %w", err)
	}
	path := filepath.Join(s.incomingDir(), msg.IncomingFilename())
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

// quarantine moves a malformed payload to rejected/ with a manifest entry.
// Best-effort: a failure here is logged by the caller via the returned
// PayloadInvalidError, not escalated further.
func (s *Store) quarantine(path, reason string) {
	base := filepath.Base(path)
	dst := filepath.Join(s.rejectedDir(), base)
	if err := fsutil.RenameAtomic(path, dst); err != nil {
		return
	}
	manifest := filepath.Join(s.rejectedDir(), base+".reason.txt")
	_ = fsutil.WriteAtomic(manifest, []byte(reason), 0o600)
}

// QuarantineProcessing moves a claimed message out of processing/ into
// rejected/ with a manifest entry, for a message that keeps failing
// deterministically (unknown workflow/function, a logic error) rather
// than transiently. Mirrors quarantine, but the source is processing/
// since the message has already been claimed by the time the worker
// gives up on it.
func (s *Store) QuarantineProcessing(filename, reason string) error {
	src := filepath.Join(s.processingDir(), filename)
	dst := filepath.Join(s.rejectedDir(), filename)
	if err := fsutil.RenameAtomic(src, dst); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &direrrors.QueueIoError{Path: src, Kind: "rename", Cause: err}
	}
	manifest := filepath.Join(s.rejectedDir(), filename+".reason.txt")
	_ = fsutil.WriteAtomic(manifest, []byte(reason), 0o600)
	return nil
}

// Claim atomically renames incoming/<filename> -> processing/<filename>.
// Returns ErrAlreadyClaimed (not an error) if the source is already gone.
func (s *Store) Claim(filename string) error {
	src := filepath.Join(s.incomingDir(), filename)
	dst := filepath.Join(s.processingDir(), filename)

	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return ErrAlreadyClaimed
		}
		return &direrrors.QueueIoError{Path: src, Kind: "stat", Cause: err}
	}

	if err := fsutil.RenameAtomic(src, dst); err != nil {
		if os.IsNotExist(err) {
			return ErrAlreadyClaimed
		}
		return &direrrors.QueueIoError{Path: src, Kind: "rename", Cause: err}
	}
	return nil
}

// ReadProcessing loads a previously claimed message from processing/.
func (s *Store) ReadProcessing(filename string) (*Message, error) {
	return s.readMessage(filepath.Join(s.processingDir(), filename))
}

// Complete writes outgoing/<shaped_name>.json via atomic write, then
// deletes processing/<filename>. The two steps are distinct fsyncs; if the
// process crashes between them, RecoverOnStartup treats the outgoing
// file's presence as the tiebreaker and deletes the orphaned processing
// file idempotently.
func (s *Store) Complete(filename string, out *OutgoingMessage) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: marshal outgoing message: %w", err)
	}

	outPath := filepath.Join(s.outgoingDir(), out.OutgoingFilename())
	if err := fsutil.WriteAtomic(outPath, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: outPath, Kind: "write", Cause: err}
	}

	procPath := filepath.Join(s.processingDir(), filename)
	if err := os.Remove(procPath); err != nil && !os.IsNotExist(err) {
		return &direrrors.QueueIoError{Path: procPath, Kind: "write", Cause: err}
	}
	return nil
}

// OutgoingFilename derives the outgoing/ filename for an OutgoingMessage,
// mirroring Message.OutgoingFilename since the outbound shaping step may
// run against a record that no longer carries every incoming field.
func (o *OutgoingMessage) OutgoingFilename() string {
	if o.Channel == "heartbeat" {
		return o.MessageID + ".json"
	}
	return fmt.Sprintf("%s_%s_%d.json", o.Channel, o.MessageID, o.Timestamp)
}

// completeNoOutgoing resolves a claimed message with no outbound file
// (e.g. a no_response action), deleting processing/<filename> directly.
func (s *Store) completeNoOutgoing(filename string) error {
	procPath := filepath.Join(s.processingDir(), filename)
	if err := os.Remove(procPath); err != nil && !os.IsNotExist(err) {
		return &direrrors.QueueIoError{Path: procPath, Kind: "write", Cause: err}
	}
	return nil
}

// Requeue atomically renames processing/<filename> -> incoming/<filename>,
// for recoverable failures.
func (s *Store) Requeue(filename string) error {
	src := filepath.Join(s.processingDir(), filename)
	dst := filepath.Join(s.incomingDir(), filename)
	if err := fsutil.RenameAtomic(src, dst); err != nil {
		return &direrrors.QueueIoError{Path: src, Kind: "rename", Cause: err}
	}
	return nil
}

// RecoveryAction records one action RecoverOnStartup took, for the
// queue/logs audit trail.
type RecoveryAction struct {
	Filename string
	Action   string // "deleted" | "requeued"
}

// RecoverOnStartup walks processing/ after an unclean shutdown: for every
// orphaned file, either deletes it (a matching outgoing file already
// exists, proving Complete's first write landed before the crash) or
// requeues it to incoming/. Every action is appended to queue/logs.
func (s *Store) RecoverOnStartup() ([]RecoveryAction, error) {
	dirEntries, err := os.ReadDir(s.processingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &direrrors.QueueIoError{Path: s.processingDir(), Kind: "read", Cause: err}
	}

	var actions []RecoveryAction
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		filename := de.Name()
		procPath := filepath.Join(s.processingDir(), filename)

		hasOutgoing, err := s.hasMatchingOutgoing(filename)
		if err != nil {
			return actions, err
		}

		if hasOutgoing {
			if err := os.Remove(procPath); err != nil && !os.IsNotExist(err) {
				return actions, &direrrors.QueueIoError{Path: procPath, Kind: "write", Cause: err}
			}
			actions = append(actions, RecoveryAction{Filename: filename, Action: "deleted"})
		} else {
			if err := s.Requeue(filename); err != nil {
				return actions, err
			}
			actions = append(actions, RecoveryAction{Filename: filename, Action: "requeued"})
		}
	}

	if len(actions) > 0 {
		s.logRecovery(actions)
	}
	return actions, nil
}

// hasMatchingOutgoing checks whether any outgoing/ file carries the same
// messageId as the processing file's stable id (its filename, sans
// extension, since incoming/processing name files by messageId).
func (s *Store) hasMatchingOutgoing(processingFilename string) (bool, error) {
	messageID := trimJSONExt(processingFilename)

	outEntries, err := os.ReadDir(s.outgoingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &direrrors.QueueIoError{Path: s.outgoingDir(), Kind: "read", Cause: err}
	}

	for _, de := range outEntries {
		if de.IsDir() {
			continue
		}
		if containsMessageID(de.Name(), messageID) {
			return true, nil
		}
	}
	return false, nil
}

func trimJSONExt(name string) string {
	const ext = ".json"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}

func containsMessageID(outgoingFilename, messageID string) bool {
	// outgoing names are <channel>_<messageId>_<timestamp>.json or
	// <messageId>.json for heartbeat; a substring match on "_<id>_" or an
	// exact stem match covers both without re-deriving the channel.
	stem := trimJSONExt(outgoingFilename)
	if stem == messageID {
		return true
	}
	needle := "_" + messageID + "_"
	return strings.Contains(stem, needle)
}

func (s *Store) logRecovery(actions []RecoveryAction) {
	path := filepath.Join(s.logsDir(), fmt.Sprintf("recovery-%d.json", time.Now().UnixNano()))
	data, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return
	}
	_ = fsutil.WriteAtomic(path, data, 0o600)
}
