package fakebackend

import "time"

type member struct {
	MemberID    int64  `json:"memberId"`
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	UserRole    string `json:"userRole"`
	password    string
}

type comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Member    *member   `json:"member,omitempty"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

type post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Member    *member    `json:"member,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Comments  []*comment `json:"comments"`
}

type page struct {
	Content       interface{} `json:"content"`
	CurrentPage   int         `json:"currentPage"`
	TotalPages    int         `json:"totalPages"`
	TotalElements int         `json:"totalElements"`
	PageSize      int         `json:"pageSize"`
	IsLast        bool        `json:"isLast"`
}

// User seeds an account on the backend.
type User struct {
	Username    string
	Password    string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Admin       bool
}
