package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDeliversProgressInOrder(t *testing.T) {
	s := NewStream(4)
	require.NoError(t, s.SendProgress(10))
	require.NoError(t, s.SendProgress(50))
	s.Close()

	var kinds []MessageKind
	for msg := range s.Receive() {
		kinds = append(kinds, msg.Kind)
		if msg.Kind == KindClose {
			break
		}
	}
	assert.Equal(t, []MessageKind{KindProgress, KindProgress, KindClose}, kinds)
}

func TestStreamCloseWinsOverCoalescedProgress(t *testing.T) {
	s := NewStream(1)
	require.NoError(t, s.SendProgress(10))
	// Fills the single buffer slot; Close must still make it through even
	// though a progress message is already queued.
	s.Close()

	msg := <-s.Receive()
	assert.Equal(t, KindClose, msg.Kind)
}

func TestSilentPrompterAnswersPrerequisiteNo(t *testing.T) {
	p := SilentPrompter{}
	ok, err := p.ConfirmPrerequisiteInstall("vcredist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSilentPrompterAnswersOverwriteYes(t *testing.T) {
	p := SilentPrompter{}
	choice, err := p.Overwrite("1.0.0", "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, ChoiceOverwrite, choice)
}
