package api

// Credentials is the login payload for both roles
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up payload for both roles
type Registration struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// ProfileUpdate carries the user fields to change, keyed by backend field name
type ProfileUpdate map[string]any

// PageQuery is the paging envelope shared by the record queries
type PageQuery struct {
	Page     int `json:"page" validate:"gte=1"`
	PageSize int `json:"pageSize" validate:"gte=1,lte=100"`
}

// UserQuery filters the admin user listing
type UserQuery struct {
	PageQuery
	Username string `json:"username,omitempty"`
}

// DateRange bounds the admin statistics, dates as YYYY-MM-DD
type DateRange struct {
	StartTime string `json:"startTime" validate:"required,datetime=2006-01-02"`
	EndTime   string `json:"endTime" validate:"required,datetime=2006-01-02"`
}

// ChatRequest is one question within a conversation identified by MemoryID
type ChatRequest struct {
	MemoryID string `json:"memoryId" validate:"required"`
	Question string `json:"question" validate:"required"`
}
