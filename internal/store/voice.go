package store

import (
	"fmt"
	"path/filepath"
)

// VoiceKind discriminates how a voice reference should be rendered.
type VoiceKind string

const (
	// VoiceLocal is a path to an .ogg clip on the local filesystem.
	VoiceLocal VoiceKind = "local"
	// VoiceRemote is a Telegram file_id that the transport can resend as is.
	VoiceRemote VoiceKind = "remote"
)

// VoiceRef points at the voice clip played to the winner of a vacancy.
// It is either a local file path or an opaque transport-side handle.
type VoiceRef struct {
	Kind  VoiceKind
	Value string
}

// LocalVoice returns a reference to a clip stored on disk.
func LocalVoice(path string) VoiceRef {
	return VoiceRef{Kind: VoiceLocal, Value: path}
}

// RemoteVoice returns a reference to a transport-side file handle.
func RemoteVoice(fileID string) VoiceRef {
	return VoiceRef{Kind: VoiceRemote, Value: fileID}
}

func (r VoiceRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Value)
}

// DefaultVoicePath returns the conventional clip location for a vacancy id
// inside the voices directory. Replacement uploads overwrite this path.
func DefaultVoicePath(dir string, id int64) string {
	return filepath.Join(dir, fmt.Sprintf("voice%d.ogg", id))
}
