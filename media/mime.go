package media

import "strings"

// mimeToExt mirrors the table the transcription service uses to name
// incoming parts. Unrecognized types fall back to wav.
var mimeToExt = map[string]string{
	"audio/mpeg": "mp3",
	"audio/mp4":  "mp4",
	"audio/m4a":  "m4a",
	"audio/wav":  "wav",
	"audio/webm": "webm",
	"audio/ogg":  "ogg",
	"audio/flac": "flac",
}

var extToMIME = map[string]string{
	".mp3":  "audio/mpeg",
	".mp4":  "audio/mp4",
	".m4a":  "audio/m4a",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
}

// BaseMIME strips codec parameters: "audio/webm;codecs=opus" -> "audio/webm".
func BaseMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.TrimSpace(strings.ToLower(mime))
}

func ExtensionForMIME(mime string) string {
	if ext, ok := mimeToExt[BaseMIME(mime)]; ok {
		return ext
	}
	return "wav"
}

func MIMEForExtension(ext string) (string, bool) {
	mime, ok := extToMIME[strings.ToLower(ext)]
	return mime, ok
}
