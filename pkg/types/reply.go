package types

// OtoReply is the structured companion reply of the buffered contract.
type OtoReply struct {
	Title string `json:"title"`
	Reply string `json:"reply"`
}

// ReplyRequest is the relay input.
type ReplyRequest struct {
	CurrentEntry string   `json:"currentEntry"`
	Aspirations  []string `json:"aspirations"`
	History      []string `json:"history"`
}

type ReplyContract string

const (
	REPLY_CONTRACT_STREAM   ReplyContract = "stream"
	REPLY_CONTRACT_BUFFERED ReplyContract = "buffered"
)

type EmotionLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
