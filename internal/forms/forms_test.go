package forms

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
)

// fakeUserRepo answers uniqueness lookups from fixed username/email sets.
type fakeUserRepo struct {
	usernames map[string]*models.User
	emails    map[string]*models.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	return nil, models.NewNotFoundError("User", id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.emails[email], nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return f.usernames[username], nil
}

func (f *fakeUserRepo) Create(context.Context, *models.User) error { return nil }
func (f *fakeUserRepo) Update(context.Context, *models.User) error { return nil }
func (f *fakeUserRepo) List(context.Context, int, int) ([]models.User, error) {
	return nil, nil
}

func takenRepo() *fakeUserRepo {
	taken := &models.User{ID: 7, Username: "corey", Email: "corey@example.com"}
	return &fakeUserRepo{
		usernames: map[string]*models.User{"corey": taken},
		emails:    map[string]*models.User{"corey@example.com": taken},
	}
}

func TestRegistrationForm(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		values     map[string]string
		wantValid  bool
		wantFields []string
	}{
		{
			name: "Valid submission",
			values: map[string]string{
				FieldUsername:        "newuser",
				FieldEmail:           "new@example.com",
				FieldPassword:        "hunter22",
				FieldConfirmPassword: "hunter22",
			},
			wantValid: true,
		},
		{
			name:       "Everything missing",
			values:     map[string]string{},
			wantValid:  false,
			wantFields: []string{FieldUsername, FieldEmail, FieldPassword, FieldConfirmPassword},
		},
		{
			name: "Username too short",
			values: map[string]string{
				FieldUsername:        "x",
				FieldEmail:           "new@example.com",
				FieldPassword:        "hunter22",
				FieldConfirmPassword: "hunter22",
			},
			wantValid:  false,
			wantFields: []string{FieldUsername},
		},
		{
			name: "Username too long",
			values: map[string]string{
				FieldUsername:        "abcdefghijklmnopqrstu",
				FieldEmail:           "new@example.com",
				FieldPassword:        "hunter22",
				FieldConfirmPassword: "hunter22",
			},
			wantValid:  false,
			wantFields: []string{FieldUsername},
		},
		{
			name: "Username taken",
			values: map[string]string{
				FieldUsername:        "corey",
				FieldEmail:           "new@example.com",
				FieldPassword:        "hunter22",
				FieldConfirmPassword: "hunter22",
			},
			wantValid:  false,
			wantFields: []string{FieldUsername},
		},
		{
			name: "Email taken",
			values: map[string]string{
				FieldUsername:        "newuser",
				FieldEmail:           "corey@example.com",
				FieldPassword:        "hunter22",
				FieldConfirmPassword: "hunter22",
			},
			wantValid:  false,
			wantFields: []string{FieldEmail},
		},
		{
			name: "Malformed email",
			values: map[string]string{
				FieldUsername:        "newuser",
				FieldEmail:           "not-an-email",
				FieldPassword:        "hunter22",
				FieldConfirmPassword: "hunter22",
			},
			wantValid:  false,
			wantFields: []string{FieldEmail},
		},
		{
			name: "Password confirmation mismatch",
			values: map[string]string{
				FieldUsername:        "newuser",
				FieldEmail:           "new@example.com",
				FieldPassword:        "hunter22",
				FieldConfirmPassword: "hunter23",
			},
			wantValid:  false,
			wantFields: []string{FieldConfirmPassword},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Registration(takenRepo()).Validate(ctx, tt.values)
			assert.Equal(t, tt.wantValid, res.Valid())
			for _, f := range tt.wantFields {
				assert.Contains(t, res.Errors, f)
			}
		})
	}
}

func TestRegistrationFirstFailingRuleWins(t *testing.T) {
	// An empty username fails Required; Length and uniqueness must not
	// overwrite that message.
	res := Registration(takenRepo()).Validate(context.Background(), map[string]string{})
	assert.Equal(t, "This field is required.", res.Errors[FieldUsername])
}

func TestUpdateAccountSelfExemption(t *testing.T) {
	ctx := context.Background()
	current := &models.User{ID: 7, Username: "corey", Email: "corey@example.com"}

	// Keeping your own username and email is not a conflict.
	res := UpdateAccount(takenRepo(), current).Validate(ctx, map[string]string{
		FieldUsername: "corey",
		FieldEmail:    "corey@example.com",
	})
	assert.True(t, res.Valid())

	// Changing only the email to a still-unique value succeeds.
	res = UpdateAccount(takenRepo(), current).Validate(ctx, map[string]string{
		FieldUsername: "corey",
		FieldEmail:    "fresh@example.com",
	})
	assert.True(t, res.Valid())

	// Another user's taken values are still conflicts.
	other := &models.User{ID: 9, Username: "someoneelse", Email: "else@example.com"}
	res = UpdateAccount(takenRepo(), other).Validate(ctx, map[string]string{
		FieldUsername: "corey",
		FieldEmail:    "corey@example.com",
	})
	assert.False(t, res.Valid())
	assert.Contains(t, res.Errors, FieldUsername)
	assert.Contains(t, res.Errors, FieldEmail)
}

func TestUpdateAccountPictureExtension(t *testing.T) {
	ctx := context.Background()
	current := &models.User{ID: 7, Username: "corey", Email: "corey@example.com"}

	base := map[string]string{
		FieldUsername: "corey",
		FieldEmail:    "corey@example.com",
	}

	tests := []struct {
		name      string
		filename  string
		wantValid bool
	}{
		{"No upload", "", true},
		{"JPEG allowed", "me.jpg", true},
		{"PNG allowed", "me.PNG", true},
		{"GIF rejected", "me.gif", false},
		{"No extension rejected", "me", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]string{FieldPicture: tt.filename}
			for k, v := range base {
				values[k] = v
			}
			res := UpdateAccount(takenRepo(), current).Validate(ctx, values)
			assert.Equal(t, tt.wantValid, res.Valid())
		})
	}
}

func TestPostForm(t *testing.T) {
	ctx := context.Background()

	res := Post().Validate(ctx, map[string]string{
		FieldTitle:   "A Title",
		FieldContent: "Some content",
	})
	assert.True(t, res.Valid())

	res = Post().Validate(ctx, map[string]string{
		FieldTitle:   "   ",
		FieldContent: "",
	})
	assert.False(t, res.Valid())
	assert.Contains(t, res.Errors, FieldTitle)
	assert.Contains(t, res.Errors, FieldContent)
}

func TestLoginForm(t *testing.T) {
	ctx := context.Background()

	res := Login().Validate(ctx, map[string]string{
		FieldEmail:    "corey@example.com",
		FieldPassword: "pw",
	})
	assert.True(t, res.Valid())

	res = Login().Validate(ctx, map[string]string{FieldEmail: "nope"})
	assert.False(t, res.Valid())
	assert.Contains(t, res.Errors, FieldEmail)
	assert.Contains(t, res.Errors, FieldPassword)
}
