package sinkmodel

import "time"

// Post is a feed entry with its comments inlined.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Member    *Member   `json:"member,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Comments  []Comment `json:"comments,omitempty"`
}

func (p Post) Author() string {
	if p.Member == nil {
		return ""
	}
	return p.Member.FullName()
}

type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Member    *Member   `json:"member,omitempty"`
	PostID    string    `json:"postId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewPost struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

type NewComment struct {
	Content string `json:"content"`
}

// Page is the backend's pagination envelope.
type Page[T any] struct {
	Content       []T  `json:"content"`
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	PageSize      int  `json:"pageSize"`
	IsLast        bool `json:"isLast"`
}

// Analytics is the admin dashboard summary.
type Analytics struct {
	TotalUsers    int           `json:"totalUsers"`
	TotalPosts    int           `json:"totalPosts"`
	TotalComments int           `json:"totalComments"`
	Members       []MemberStats `json:"members"`
	TopPost       *TopPost      `json:"topPost,omitempty"`
}

type MemberStats struct {
	Username   string      `json:"username"`
	TotalPosts int         `json:"totalPosts"`
	Posts      []PostStats `json:"posts"`
}

type PostStats struct {
	PostTitle     string `json:"postTitle"`
	PostID        string `json:"postId"`
	TotalComments int    `json:"totalComments"`
}

type TopPost struct {
	PostTitle     string `json:"postTitle"`
	PostID        string `json:"postId"`
	Member        string `json:"member"`
	TotalComments int    `json:"totalComments"`
}
