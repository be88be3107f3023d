package auth

import (
	"github.com/frahmantamala/habilitation-management/internal/core/common/validation"
)

// LoginDTO is the transport shape accepted by the login endpoint.
type LoginDTO struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// RefreshTokenDTO is shared by the refresh and logout endpoints.
type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refreshToken", d.RefreshToken).Required()

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
