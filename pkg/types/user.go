package types

type User struct {
	ID             string `json:"id" db:"id"`
	Appid          string `json:"appid" db:"appid"`
	Email          string `json:"email" db:"email"`
	Password       string `json:"-" db:"password"`
	Name           string `json:"name" db:"name"`
	Age            int    `json:"age" db:"age"`
	Gender         string `json:"gender" db:"gender"`
	OnboardingDone bool   `json:"onboarding_done" db:"onboarding_done"`
	CreatedAt      int64  `json:"created_at" db:"created_at"`
	UpdatedAt      int64  `json:"updated_at" db:"updated_at"`
}

type UserProfile struct {
	Name   string
	Age    int
	Gender string
}

// Aspiration is a short goal supplied at onboarding and used as prompt context.
type Aspiration struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	Text      string `json:"text" db:"text"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

const (
	MIN_ASPIRATIONS = 1
	MAX_ASPIRATIONS = 3
)
