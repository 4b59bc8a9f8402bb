package handlers

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hungpv1995/community-board/internal/listing"
	"github.com/hungpv1995/community-board/internal/models"
)

const (
	maxTitle      = 200
	minContent    = 5
	maxComment    = 500
	maxUsername   = 50
	maxEmail      = 100
	minPassword   = 8
	maxPassword   = 100
	maxPhone      = 20
	maxProfileURL = 500
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func finish(errors map[string]string) (map[string]string, bool) {
	if len(errors) > 0 {
		log.Println("Validation errors:", errors)
		return errors, false
	}
	return nil, true
}

func validatePost(req *models.CreatePostRequest) (map[string]string, bool) {
	errors := make(map[string]string)

	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = strings.TrimSpace(req.Category)

	if req.Title == "" {
		errors["title"] = "Title is required"
	} else if utf8.RuneCountInString(req.Title) > maxTitle {
		errors["title"] = fmt.Sprintf("Title cannot be longer than %d characters", maxTitle)
	}
	if utf8.RuneCountInString(req.Content) < minContent {
		errors["content"] = fmt.Sprintf("Content must be at least %d characters long", minContent)
	}
	if !listing.IsPostCategory(req.Category) {
		errors["category"] = "Category must be one of " + strings.Join(listing.PostCategories(), ", ")
	}
	return finish(errors)
}

func validatePostUpdate(req *models.UpdatePostRequest) (map[string]string, bool) {
	errors := make(map[string]string)

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			errors["title"] = "Title cannot be empty"
		} else if utf8.RuneCountInString(title) > maxTitle {
			errors["title"] = fmt.Sprintf("Title cannot be longer than %d characters", maxTitle)
		}
	}
	if req.Content != nil && utf8.RuneCountInString(strings.TrimSpace(*req.Content)) < minContent {
		errors["content"] = fmt.Sprintf("Content must be at least %d characters long", minContent)
	}
	if req.Category != nil && !listing.IsPostCategory(strings.TrimSpace(*req.Category)) {
		errors["category"] = "Category must be one of " + strings.Join(listing.PostCategories(), ", ")
	}
	if req.Visibility != nil && !models.ValidVisibility(*req.Visibility) {
		errors["visibility"] = "Visibility must be PUBLIC, PRIVATE or UNLISTED"
	}
	if req.Status != nil && (*req.Status == models.StatusDeleted || !models.ValidStatus(*req.Status)) {
		errors["status"] = "Status must be PUBLISHED or DRAFT"
	}
	return finish(errors)
}

func validateComment(content string) (map[string]string, bool) {
	errors := make(map[string]string)
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n == 0 {
		errors["content"] = "Comment cannot be empty"
	} else if n > maxComment {
		errors["content"] = fmt.Sprintf("Comment cannot be longer than %d characters", maxComment)
	}
	return finish(errors)
}

func validateRegister(req *models.RegisterRequest) (map[string]string, bool) {
	errors := make(map[string]string)

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		errors["username"] = "Username cannot be empty"
	} else if utf8.RuneCountInString(req.Username) > maxUsername {
		errors["username"] = fmt.Sprintf("Username cannot be longer than %d characters", maxUsername)
	}

	if req.Email == "" {
		errors["email"] = "Email cannot be empty"
	} else if len(req.Email) > maxEmail {
		errors["email"] = fmt.Sprintf("Email cannot be longer than %d characters", maxEmail)
	} else if !emailPattern.MatchString(req.Email) {
		errors["email"] = "Invalid email format"
	}

	if len(req.Password) < minPassword {
		errors["password"] = fmt.Sprintf("Password must be at least %d characters long", minPassword)
	} else if len(req.Password) > maxPassword {
		errors["password"] = fmt.Sprintf("Password cannot be longer than %d characters", maxPassword)
	}

	if len(req.Phone) > maxPhone {
		errors["phone"] = fmt.Sprintf("Phone cannot be longer than %d characters", maxPhone)
	}
	return finish(errors)
}

func validateUserUpdate(req *models.UpdateUserRequest) (map[string]string, bool) {
	errors := make(map[string]string)
	if req.Phone != nil && len(strings.TrimSpace(*req.Phone)) > maxPhone {
		errors["phone"] = fmt.Sprintf("Phone cannot be longer than %d characters", maxPhone)
	}
	if req.ProfileImageURL != nil && len(strings.TrimSpace(*req.ProfileImageURL)) > maxProfileURL {
		errors["profile_image_url"] = fmt.Sprintf("Profile image URL cannot be longer than %d characters", maxProfileURL)
	}
	return finish(errors)
}
