package handler

import (
	"github.com/finportal/portal/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"     validate:"omitempty,e164"`
}

type employeeLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type redirectResponse struct {
	RedirectTo string `json:"redirect_to"`
}

type signupResponse struct {
	CustomerID string `json:"customer_id"`
}

type viewerResponse struct {
	Actor    string `json:"actor,omitempty"`
	Loading  bool   `json:"loading"`
	Employee bool   `json:"employee"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
}

func toViewerResponse(v domain.Viewer) viewerResponse {
	resp := viewerResponse{Loading: v.Loading, Employee: v.Employee}
	if v.Actor == nil {
		return resp
	}
	resp.Actor = string(v.Actor.Kind())
	if c, ok := v.Actor.(domain.Customer); ok {
		resp.UserID = c.UserID
		resp.Email = c.Email
	}
	return resp
}

type noticeResponse struct {
	Key     string `json:"key"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type noticeListResponse struct {
	Notices []noticeResponse `json:"notices"`
}

func toNoticeListResponse(ns []domain.Notice) noticeListResponse {
	out := make([]noticeResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, noticeResponse{Key: n.Key, Level: string(n.Level), Message: n.Message})
	}
	return noticeListResponse{Notices: out}
}

type applyResponse struct {
	Outcome    string `json:"outcome"`
	RedirectTo string `json:"redirect_to"`
}

type pageResponse struct {
	Page   string         `json:"page"`
	Title  string         `json:"title"`
	Viewer viewerResponse `json:"viewer"`
}
