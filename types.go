package folioengine

import "time"

// Identity is an admin account. Identities are created out of band (CLI or
// bootstrap config) and only read while serving requests.
type Identity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ContactSubmission is a message left through the public contact form.
type ContactSubmission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// PortfolioItem is a showcased piece of work with its cover image.
type PortfolioItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"-"` // ordering only
}

// BlogPost is a published article.
type BlogPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	ImageURL  string    `json:"imageUrl"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// ContactInput is the body of POST /contact. Missing fields are stored empty.
type ContactInput struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Service string `json:"service" form:"service"`
	Message string `json:"message" form:"message"`
}

// PortfolioInput holds the text fields of POST /portfolio. The image URL is
// never taken from the client.
type PortfolioInput struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
}

// BlogInput holds the text fields of POST /blogs.
type BlogInput struct {
	Title   string `json:"title" form:"title"`
	Summary string `json:"summary" form:"summary"`
	Content string `json:"content" form:"content"`
}
