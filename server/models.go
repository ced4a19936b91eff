package main

import "nestlist/internal/store"

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	OK    bool       `json:"ok"`
	User  store.User `json:"user"`
	Token string     `json:"token"`
}

type createNodeRequest struct {
	ParentID *int64 `json:"parentId"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
}

type moveRequest struct {
	ParentID *int64 `json:"parentId"`
	// Index places the node among the target's children and renumbers both
	// containers. Nil appends.
	Index *int `json:"index"`
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

type shareRequest struct {
	Username   string `json:"username"`
	Permission string `json:"permission"`
}

type deleteResponse struct {
	OK      bool    `json:"ok"`
	Removed []int64 `json:"removed"`
}
