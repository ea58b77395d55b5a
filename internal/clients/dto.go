package clients

type CreateClientRequest struct {
	FullName string  `json:"full_name" validate:"required,max=200"`
	Phone    string  `json:"phone" validate:"omitempty,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Note     string  `json:"note" validate:"omitempty,max=2000"`
}

type UpdateClientRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=2000"`
}

type ListClientsRequest struct {
	Search string
	Limit  int
	Offset int
}
