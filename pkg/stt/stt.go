// Package stt holds the transcription types shared by speech-to-text
// backends.
package stt

type Options struct {
	Language      string // "en", "auto", ...
	Threads       int    // <=0 => NumCPU()
	InitialPrompt string // biases decoding towards expected vocabulary
	BeamSize      int    // 0 = greedy
	MaxTokens     uint   // 0 = no limit
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}
