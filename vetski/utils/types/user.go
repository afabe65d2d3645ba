package types

type UpdateProfileRequest struct {
	FullName   *string `json:"full_name,omitempty"`
	Role       *string `json:"role,omitempty"`
	AvatarPath *string `json:"avatar_path,omitempty"`
}

type CreateAnimalRequest struct {
	Name       string  `json:"name"`
	Species    string  `json:"species"`
	Breed      string  `json:"breed,omitempty"`
	BirthYear  *int    `json:"birth_year,omitempty"`
	AvatarPath *string `json:"avatar_path,omitempty"`
}

type UpdateAnimalRequest struct {
	Name       *string `json:"name,omitempty"`
	Species    *string `json:"species,omitempty"`
	Breed      *string `json:"breed,omitempty"`
	BirthYear  *int    `json:"birth_year,omitempty"`
	AvatarPath *string `json:"avatar_path,omitempty"`
}

type InsightsResponse struct {
	AnimalID  string      `json:"animal_id"`
	Data      interface{} `json:"data"`
	UpdatedAt *string     `json:"updated_at,omitempty"`
	Refreshed bool        `json:"refreshed"`
}
