package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/kagemusha-ai/kagemusha/utils"
)

// ClientFlow manages the lifecycle of tracked brands. The selected client is
// explicit state in the database, not ambient process state; every
// orchestration call receives a client id.
type ClientFlow interface {
	AddClient(ctx context.Context, req *dto.AddClientRequest) (*dto.ClientDTO, error)
	ListClients(ctx context.Context) ([]dto.ClientDTO, error)
	SelectClient(ctx context.Context, clientID uint) error
	DeleteClient(ctx context.Context, clientID uint) (*dto.DeleteClientResponse, error)
	GetClient(ctx context.Context, clientID uint) (*models.Client, error)
}

// ClientFlowImpl implements ClientFlow
type ClientFlowImpl struct {
	clientRepo repository.ClientRepository
	logger     *log.Logger
}

// NewClientFlow creates a new client flow
func NewClientFlow(clientRepo repository.ClientRepository, logger *log.Logger) ClientFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &ClientFlowImpl{
		clientRepo: clientRepo,
		logger:     logger,
	}
}

// AddClient registers a new brand. The first client ever created becomes the
// current one automatically.
func (f *ClientFlowImpl) AddClient(ctx context.Context, req *dto.AddClientRequest) (*dto.ClientDTO, error) {
	brandName := strings.TrimSpace(req.BrandName)
	if brandName == "" {
		return nil, NewBusinessError("CLIENT_BRAND_NAME_REQUIRED", "Brand name is required", ErrBrandNameRequired)
	}

	locale := req.Locale
	if locale == "" {
		locale = "en-US"
	}

	count, err := f.clientRepo.Count(ctx, models.ClientFilter{})
	if err != nil {
		return nil, NewBusinessError("CLIENT_COUNT_FAILED", "Failed to count clients", err)
	}

	client := &models.Client{
		UUID:        uuid.New(),
		BrandName:   brandName,
		BrandTags:   req.BrandTags,
		Competitors: req.Competitors,
		Locale:      locale,
		IsCurrent:   utils.ToPtr(count == 0),
	}

	if err := f.clientRepo.Save(ctx, client); err != nil {
		return nil, NewBusinessError("CLIENT_CREATE_FAILED", "Failed to create client", err)
	}

	out := ToClientDTO(*client)
	return &out, nil
}

// ListClients returns all registered brands
func (f *ClientFlowImpl) ListClients(ctx context.Context) ([]dto.ClientDTO, error) {
	clients, err := f.clientRepo.List(ctx)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LIST_FAILED", "Failed to list clients", err)
	}

	out := make([]dto.ClientDTO, 0, len(clients))
	for _, c := range clients {
		out = append(out, ToClientDTO(*c))
	}
	return out, nil
}

// SelectClient makes the given client the current one
func (f *ClientFlowImpl) SelectClient(ctx context.Context, clientID uint) error {
	client, err := f.clientRepo.ByID(ctx, clientID)
	if err != nil {
		return NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}

	if err := f.clientRepo.SetCurrent(ctx, clientID); err != nil {
		return NewBusinessError("CLIENT_SELECT_FAILED", "Failed to select client", err)
	}
	return nil
}

// DeleteClient removes a brand. Deleting the last remaining client is
// refused with no state change. When the deleted client was current, the
// first remaining client (lowest id) becomes current deterministically.
func (f *ClientFlowImpl) DeleteClient(ctx context.Context, clientID uint) (*dto.DeleteClientResponse, error) {
	client, err := f.clientRepo.ByID(ctx, clientID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}

	count, err := f.clientRepo.Count(ctx, models.ClientFilter{})
	if err != nil {
		return nil, NewBusinessError("CLIENT_COUNT_FAILED", "Failed to count clients", err)
	}
	if count <= 1 {
		return nil, NewBusinessError("CLIENT_LAST_UNDELETABLE", "Cannot delete the last remaining client", ErrLastClientUndeletable)
	}

	wasCurrent := client.IsCurrent != nil && *client.IsCurrent

	if err := f.clientRepo.Delete(ctx, clientID); err != nil {
		return nil, NewBusinessError("CLIENT_DELETE_FAILED", "Failed to delete client", err)
	}

	remaining, err := f.clientRepo.List(ctx)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LIST_FAILED", "Failed to list remaining clients", err)
	}

	var newCurrentID uint
	if len(remaining) > 0 {
		newCurrentID = remaining[0].ID
		if wasCurrent {
			if err := f.clientRepo.SetCurrent(ctx, newCurrentID); err != nil {
				return nil, NewBusinessError("CLIENT_SELECT_FAILED", "Failed to select replacement client", err)
			}
		} else if cur, err := f.clientRepo.Current(ctx); err == nil && cur != nil {
			newCurrentID = cur.ID
		}
	}

	f.logger.Printf("client flow: deleted client %d (%s), current is now %d", clientID, client.BrandName, newCurrentID)

	return &dto.DeleteClientResponse{
		Message:        fmt.Sprintf("Client %s deleted", client.BrandName),
		NewCurrentID:   newCurrentID,
		RemainingCount: len(remaining),
	}, nil
}

// GetClient fetches a client or fails with a typed not-found error
func (f *ClientFlowImpl) GetClient(ctx context.Context, clientID uint) (*models.Client, error) {
	client, err := f.clientRepo.ByID(ctx, clientID)
	if err != nil {
		return nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}
	return client, nil
}
