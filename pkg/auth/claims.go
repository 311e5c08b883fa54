package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/athathco/athath-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	SubjectID  uuid.UUID
	Role       enums.ActorRole
	RetailerID *uuid.UUID
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients. RetailerID is
// present only for retailer-role tokens.
type AccessTokenClaims struct {
	SubjectID  uuid.UUID       `json:"subject_id"`
	Role       enums.ActorRole `json:"role"`
	RetailerID *uuid.UUID      `json:"retailer_id,omitempty"`
	jwt.RegisteredClaims
}
