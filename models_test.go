package authclient_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestLoginRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     authclient.LoginRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  authclient.LoginRequest{Email: "ada@example.com", Password: "secret"},
		},
		{
			name:    "missing email",
			req:     authclient.LoginRequest{Password: "secret"},
			wantErr: true,
		},
		{
			name:    "malformed email",
			req:     authclient.LoginRequest{Email: "not-an-email", Password: "secret"},
			wantErr: true,
		},
		{
			name:    "missing password",
			req:     authclient.LoginRequest{Email: "ada@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := authclient.RegisterRequest{
		Email:     "ada@example.com",
		Password:  "secret-password",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
	assert.NoError(t, valid.Validate())

	short := valid
	short.Password = "short"
	assert.Error(t, short.Validate())

	noName := valid
	noName.FirstName = ""
	assert.Error(t, noName.Validate())
}

func TestUpdateProfileRequest_PhoneValidation(t *testing.T) {
	ok := authclient.UpdateProfileRequest{Phone: "(212) 555-0100"}
	assert.NoError(t, ok.Validate())

	intl := authclient.UpdateProfileRequest{Phone: "+44 20 7946 0958", PhoneRegion: "GB"}
	assert.NoError(t, intl.Validate())

	bad := authclient.UpdateProfileRequest{Phone: "12"}
	assert.Error(t, bad.Validate())

	empty := authclient.UpdateProfileRequest{}
	assert.NoError(t, empty.Validate())
}

func TestUpdateProfileRequest_Normalize(t *testing.T) {
	req := authclient.UpdateProfileRequest{Phone: "(212) 555-0100"}
	assert.Equal(t, "+12125550100", req.Normalize().Phone)

	// already E.164 stays put
	req = authclient.UpdateProfileRequest{Phone: "+12125550100"}
	assert.Equal(t, "+12125550100", req.Normalize().Phone)

	// unparseable values pass through for the server to reject
	req = authclient.UpdateProfileRequest{Phone: "12"}
	assert.Equal(t, "12", req.Normalize().Phone)
}

func TestUserDisplayName(t *testing.T) {
	user := &authclient.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	assert.Equal(t, "Ada Lovelace", user.DisplayName())

	user = &authclient.User{FirstName: "Ada"}
	assert.Equal(t, "Ada", user.DisplayName())

	user = &authclient.User{Email: "ada@example.com"}
	assert.Equal(t, "ada@example.com", user.DisplayName())

	var nilUser *authclient.User
	assert.Empty(t, nilUser.DisplayName())
}

func TestAuthResponseWireFormat(t *testing.T) {
	payload := []byte(`{
		"user": {
			"id": "usr-1",
			"email": "ada@example.com",
			"firstName": "Ada",
			"lastName": "Lovelace",
			"preferences": {"emailNotifications": true, "marketingEmails": false}
		},
		"accessToken": "access-1",
		"refreshToken": "refresh-1",
		"expiresIn": 900
	}`)

	resp := authclient.AuthResponse{}
	require.NoError(t, json.Unmarshal(payload, &resp))

	assert.Equal(t, "access-1", resp.AccessToken)
	assert.EqualValues(t, 900, resp.ExpiresIn)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Ada", resp.User.FirstName)
	require.NotNil(t, resp.User.Preferences)
	assert.True(t, resp.User.Preferences.EmailNotifications)
	assert.False(t, resp.User.Preferences.MarketingEmails)
}

func TestLoginRequest_RememberMeStaysLocal(t *testing.T) {
	data, err := json.Marshal(authclient.LoginRequest{
		Email:      "ada@example.com",
		Password:   "secret",
		RememberMe: true,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "remember")
}
