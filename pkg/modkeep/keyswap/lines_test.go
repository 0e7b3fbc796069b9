package keyswap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitJoinLines(t *testing.T) {
	inputs := []string{
		"",
		"one",
		"one\ntwo\n",
		"one\r\ntwo\nthree",
		"\n\n",
	}
	for _, in := range inputs {
		assert.Equal(t, in, string(joinLines(splitLines([]byte(in)))), "input %q", in)
	}
}

func TestReplaceValue(t *testing.T) {
	tests := []struct {
		line, value, want string
	}{
		{"key=VK_1", "VK_3", "key=VK_3"},
		{"key = VK_1", "VK_3", "key = VK_3"},
		{"  back =\tVK_2  ", "VK_4", "  back =\tVK_4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, replaceValue(tt.line, tt.value))
	}
}

func TestSectionName(t *testing.T) {
	name, ok := sectionName("  [KeySwap] ")
	assert.True(t, ok)
	assert.Equal(t, "KeySwap", name)

	_, ok = sectionName("key = [x")
	assert.False(t, ok)
}
