package i18n

var defaultMessages = map[string]Text{
	"appTitle":       {"VocaText"},
	"appDescription": {"Transform your voice into text with speech recognition."},

	// Permission gate
	"microphoneAccessGranted":     {"Microphone Access Granted"},
	"microphoneAccessGrantedDesc": {"You can now start recording audio."},
	"microphoneAccessDenied":      {"Microphone Permission Denied"},
	"microphoneAccessDeniedDesc":  {"Please allow microphone access in your system settings and try again."},
	"permissionRequestFailed":     {"Permission Request Failed"},
	"permissionRequestFailedDesc": {"Unable to request microphone permission.", "Please check your audio settings."},
	"recordingNotSupported":       {"Recording Not Supported"},
	"recordingNotSupportedDesc":   {"Your environment doesn't support audio recording:"},

	// Capture engine
	"recordingStarted":        {"Recording started"},
	"recordingStartedDesc":    {"Speak clearly into your microphone"},
	"recordingCompletedTitle": {"Recording completed"},
	"recordingCompletedDesc":  {"You can now listen to your recording before processing"},
	"recordingFailed":         {"Recording failed"},
	"recordingFailedDesc":     {"Please check your microphone permissions"},
	"noVoiceDetected":         {"No voice detected"},
	"noVoiceDetectedDesc":     {"The recording seems silent.", "Check your microphone input level and try again."},
	"noMicrophoneFound":       {"No Microphone Found"},
	"noMicrophoneFoundDesc":   {"No microphone device was found.", "Please check that your microphone is connected and try again."},
	"securityError":           {"Security Error"},
	"securityErrorDesc":       {"Microphone access is blocked by the environment."},

	// Upload
	"fileUploadedSuccess": {"File uploaded successfully"},
	"fileUploadedDesc":    {"is ready for transcription"},
	"invalidFileType":     {"Invalid file type"},
	"invalidFileTypeDesc": {"Please upload an audio file (MP3, WAV, M4A, etc.)"},
	"fileTooLarge":        {"File too large"},
	"fileTooLargeDesc":    {"Please upload a file smaller than 100MB"},

	// Submission pipeline
	"transcriptionCompleted":     {"Transcription completed"},
	"transcriptionCompletedDesc": {"Your audio has been transcribed with"},
	"transcriptionFailed":        {"Transcription Failed"},
	"transcriptionFailedDesc":    {"An error occurred while processing the audio.", "Please check your connection and try again."},
	"serviceUnavailable":         {"Service Unavailable"},
	"serviceUnavailableMockDesc": {"The transcription service is temporarily down for maintenance.", "Displaying a mock result for demonstration purposes."},
	"serviceUnavailableDesc":     {"The transcription service is temporarily down for maintenance."},
	"noAudioAvailable":           {"No audio to process"},
	"noAudioAvailableDesc":       {"Record or upload audio before transcribing."},

	// Fixed substitute transcripts for soft failures
	"mockTranscript":        {"This is a mock transcription result.", "The server is currently unavailable, but here is a sample output."},
	"unavailableTranscript": {"The transcription service is temporarily unavailable.", "Please try again later."},

	// Playback
	"playbackFailed":     {"Playback failed"},
	"playbackFailedDesc": {"The audio could not be played."},

	// Clipboard / export
	"copiedToClipboard":     {"Copied to clipboard"},
	"copiedToClipboardDesc": {"transcription text has been copied"},
	"downloadStarted":       {"Download started"},
	"downloadStartedDesc":   {"transcription saved as"},
	"raw":                   {"Raw"},
	"corrected":             {"Corrected"},

	// Clear
	"cleared":     {"Cleared"},
	"clearedDesc": {"All data has been cleared"},
}
