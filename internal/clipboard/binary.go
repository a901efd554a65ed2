package clipboard

import (
	"strings"

	"github.com/h2non/filetype"
)

// sniffLen is the header size filetype needs to identify a type.
const sniffLen = 262

// IsBinary reports whether text is really file content pasted as a string,
// such as an image some clipboard managers expose as text.
func IsBinary(text string) bool {
	if strings.IndexByte(text, 0) >= 0 {
		return true
	}
	head := []byte(text)
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return filetype.IsImage(head) ||
		filetype.IsVideo(head) ||
		filetype.IsAudio(head) ||
		filetype.IsArchive(head) ||
		filetype.IsDocument(head) ||
		filetype.IsFont(head)
}
