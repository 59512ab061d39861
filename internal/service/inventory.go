package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// InventoryRepository defines the device record persistence used by
// InventoryService.
type InventoryRepository interface {
	Create(ctx context.Context, it *models.Item) error
	ExistsByDNI(ctx context.Context, dni string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
	Update(ctx context.Context, id string, upd models.ItemUpdate, by string, at time.Time) (*models.Item, error)
	Delete(ctx context.Context, id string) error
}

// InventoryService is the only writer of inventory records. Every
// successful mutation is followed by exactly one audit entry. Callers are
// expected to have checked the actor's role.
type InventoryService struct {
	repo  InventoryRepository
	audit Auditor
	log   *zap.Logger
	now   func() time.Time
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(repo InventoryRepository, audit Auditor, log *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, audit: audit, log: log, now: time.Now}
}

func dniTaken(dni string) error {
	return fmt.Errorf("%w: dni %s is already registered", models.ErrDuplicateKey, dni)
}

// CreateItem validates in, stores it as a new record stamped with actor and
// records a CREATE audit entry.
func (s *InventoryService) CreateItem(ctx context.Context, actor *models.User, in models.NewItem) (*models.Item, error) {
	in.DNI = strings.TrimSpace(in.DNI)
	in.Phone = strings.TrimSpace(in.Phone)
	in.PersonalEmail = strings.TrimSpace(in.PersonalEmail)
	if err := validateNewItem(&in); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByDNI(ctx, in.DNI)
	if err != nil {
		s.logFailure(actor, models.ActionCreate, "", err)
		return nil, err
	}
	if exists {
		return nil, dniTaken(in.DNI)
	}

	now := s.now().UTC()
	it := &models.Item{
		ID:                uuid.NewString(),
		Holder:            strings.TrimSpace(in.Holder),
		DNI:               in.DNI,
		Device:            strings.TrimSpace(in.Device),
		AssetTag:          in.AssetTag,
		Model:             in.Model,
		SerialNumber:      in.SerialNumber,
		IMEI:              in.IMEI,
		TabletCase:        in.TabletCase,
		DataPlan:          in.DataPlan,
		PowerTech:         in.PowerTech,
		Phone:             in.Phone,
		PersonalEmail:     in.PersonalEmail,
		DeliveredAt:       now,
		Condition:         in.Condition,
		Stolen:            in.Stolen,
		RepairReason:      in.RepairReason,
		Location:          in.Location,
		ResponsibleParty:  actor.FullName,
		Notes:             in.Notes,
		EstimatedValue:    in.EstimatedValue,
		WarrantyExpiresAt: in.WarrantyExpiresAt,
		Vendor:            in.Vendor,
		PurchasedAt:       in.PurchasedAt,
		CreatedBy:         actor.Username,
		UpdatedBy:         actor.Username,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.DeliveredAt != nil {
		it.DeliveredAt = in.DeliveredAt.UTC()
	}
	if strings.TrimSpace(it.Location) == "" {
		it.Location = models.DefaultLocation
	}
	if it.ResponsibleParty == "" {
		it.ResponsibleParty = actor.Username
	}

	if err := s.repo.Create(ctx, it); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, dniTaken(in.DNI)
		}
		s.logFailure(actor, models.ActionCreate, it.ID, err)
		return nil, err
	}

	s.audit.Record(ctx, actor, models.ActionCreate, models.ResourceInventory, &it.ID,
		map[string]any{"persona": it.Holder, "dispositivo": it.Device})
	s.log.Info("item created",
		zap.String("actor", actor.Username),
		zap.String("resource_id", it.ID),
		zap.String("dispositivo", it.Device))
	return it, nil
}

// UpdateItem applies the allow-listed fields of upd to record id.
func (s *InventoryService) UpdateItem(ctx context.Context, actor *models.User, id string, upd models.ItemUpdate) (*models.Item, error) {
	if err := validateItemUpdate(&upd); err != nil {
		return nil, err
	}
	fields := upd.Fields()
	it, err := s.repo.Update(ctx, id, upd, actor.Username, s.now().UTC())
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logFailure(actor, models.ActionUpdate, id, err)
		}
		return nil, err
	}

	if fields == nil {
		fields = []string{}
	}
	s.audit.Record(ctx, actor, models.ActionUpdate, models.ResourceInventory, &it.ID,
		map[string]any{"updated_fields": fields})
	s.log.Info("item updated", zap.String("actor", actor.Username), zap.String("resource_id", it.ID))
	return it, nil
}

// DeleteItem removes record id.
func (s *InventoryService) DeleteItem(ctx context.Context, actor *models.User, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logFailure(actor, models.ActionDelete, id, err)
		}
		return err
	}
	s.audit.Record(ctx, actor, models.ActionDelete, models.ResourceInventory, &id, nil)
	s.log.Info("item deleted", zap.String("actor", actor.Username), zap.String("resource_id", id))
	return nil
}

// GetItem returns record id.
func (s *InventoryService) GetItem(ctx context.Context, id string) (*models.Item, error) {
	return s.repo.FindByID(ctx, id)
}

// ListItems returns every record ordered by holder name.
func (s *InventoryService) ListItems(ctx context.Context) ([]models.Item, error) {
	return s.repo.List(ctx)
}

func (s *InventoryService) logFailure(actor *models.User, action models.Action, id string, err error) {
	s.log.Error("inventory mutation failed",
		zap.String("actor", actor.Username),
		zap.String("action", string(action)),
		zap.String("resource", models.ResourceInventory),
		zap.String("resource_id", id),
		zap.Error(err))
}
