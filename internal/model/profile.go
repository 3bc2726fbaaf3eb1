package model

// Gender options offered by the profile form.
const (
	GenderMale           = "male"
	GenderFemale         = "female"
	GenderOther          = "other"
	GenderPreferNotToSay = "prefer_not_to_say"
)

// UserProfile personalizes the assistant's replies. Name is required for
// the profile to be used in prompts; the rest is optional.
type UserProfile struct {
	Name        string `json:"name"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Career      string `json:"career,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

// CareerOptions lists the careers suggested by the profile form.
var CareerOptions = []string{
	"Software Engineer",
	"Product Manager",
	"Designer",
	"Data Scientist",
	"Marketing",
	"Sales",
	"Finance",
	"Healthcare",
	"Education",
	"Legal",
	"Freelancer",
	"Student",
	"Entrepreneur",
	"Other",
}
