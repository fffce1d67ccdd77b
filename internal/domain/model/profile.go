package model

type Interest struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

// Traits carries the canonical personality axes. A nil axis is missing, not zero.
type Traits struct {
	Communication *float64           `json:"communication,omitempty"`
	Values        *float64           `json:"values,omitempty"`
	Extraversion  *float64           `json:"extraversion,omitempty"`
	Openness      *float64           `json:"openness,omitempty"`
	Planning      *float64           `json:"planning,omitempty"`
	Sociability   *float64           `json:"sociability,omitempty"`
	Extra         map[string]float64 `json:"extra,omitempty"`
}

type Profile struct {
	UserID        int64      `json:"user_id"`
	DisplayName   string     `json:"display_name"`
	AvatarURL     string     `json:"avatar_url"`
	QuizCompleted bool       `json:"quiz_completed"`
	Traits        Traits     `json:"traits"`
	Interests     []Interest `json:"interests"`
}

type PublicProfile struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func (p Profile) Public() PublicProfile {
	return PublicProfile{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}
