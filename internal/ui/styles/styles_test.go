// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestSpinnerConfig(t *testing.T) {
	assert.Equal(t, time.Second/6, DotsSpinner.Duration())
	assert.Equal(t, time.Second/10, SpinnerConfig{}.Duration())

	sp := LineSpinner.Spinner()
	assert.Equal(t, LineSpinner.Frames, sp.Frames)
	assert.Equal(t, time.Second/10, sp.FPS)
}

func TestTheme_ContentWidth(t *testing.T) {
	theme := NewThemeForProfile(termenv.Ascii, true)
	assert.Equal(t, 76, theme.ContentWidth())

	theme.SetSize(120, 40)
	assert.Equal(t, 116, theme.ContentWidth())
	assert.Equal(t, 40, theme.Height)

	theme.SetSize(10, 5)
	assert.Equal(t, 20, theme.ContentWidth(), "never narrower than 20")
}

func TestRenderHelpers(t *testing.T) {
	assert.True(t, strings.Contains(RenderError("boom"), "x boom"))
	assert.Contains(t, RenderMuted("quiet"), "quiet")
	assert.Contains(t, RenderLink("here"), "here")
}
