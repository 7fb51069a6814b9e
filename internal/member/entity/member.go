package entity

import "time"

// Member is a row of the `members` table.
type Member struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	ProfilePic   string
	Tasks        []string
	CreatedAt    time.Time
}

// Profile is the public view of a member. It never carries the password hash.
type Profile struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	ProfilePic string   `json:"profilePic"`
	Tasks      []string `json:"tasks"`
}

func (m *Member) Profile() Profile {
	tasks := m.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	return Profile{Name: m.Name, Email: m.Email, ProfilePic: m.ProfilePic, Tasks: tasks}
}
