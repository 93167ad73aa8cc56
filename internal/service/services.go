package service

import (
	"github.com/obsidian-cms/obsidian/internal/credential"
	"github.com/obsidian-cms/obsidian/internal/repository"
	"github.com/obsidian-cms/obsidian/internal/token"
)

// Services bundles the service layer for handler wiring.
type Services struct {
	Policy   *AccessPolicy
	Auth     *AuthService
	Entities *EntityService
	Files    *FileService
	Comments *CommentService
	Pages    *PageService
}

func NewServices(repos *repository.Repositories, creds *credential.Manager, tokens *token.Service) *Services {
	policy := NewAccessPolicy(repos.Entities, repos.Blobs)
	return &Services{
		Policy:   policy,
		Auth:     NewAuthService(repos.Users, creds, tokens),
		Entities: NewEntityService(repos.Entities, policy),
		Files:    NewFileService(repos.Entities, repos.Blobs, policy),
		Comments: NewCommentService(repos.Entities, policy),
		Pages:    NewPageService(repos.Entities, policy),
	}
}
