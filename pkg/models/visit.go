package models

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// VisitRecord is one recorded inbound request with client metadata.
// It is captured once per request and persisted independently to
// whichever backends accept it.
type VisitRecord struct {
	ID             string    `json:"id" bson:"id"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
	IP             string    `json:"ip" bson:"ip"`
	UserAgent      string    `json:"user_agent" bson:"user_agent"`
	URL            string    `json:"url" bson:"url"`
	Referer        string    `json:"referer,omitempty" bson:"referer,omitempty"`
	Method         string    `json:"method" bson:"method"`
	AcceptLanguage string    `json:"accept_language,omitempty" bson:"accept_language,omitempty"`
	AcceptEncoding string    `json:"accept_encoding,omitempty" bson:"accept_encoding,omitempty"`
}

// NewVisitRecord snapshots the request metadata that makes up a visit.
func NewVisitRecord(r *http.Request, clientIP string) VisitRecord {
	return VisitRecord{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		IP:             clientIP,
		UserAgent:      r.UserAgent(),
		URL:            r.URL.RequestURI(),
		Referer:        r.Referer(),
		Method:         r.Method,
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
	}
}
