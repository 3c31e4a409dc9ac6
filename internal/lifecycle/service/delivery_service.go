package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentStore object storage for delivery-note documents.
type DocumentStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

var errNoDocumentStore = &Error{Kind: KindBackend, Message: "document storage not configured"}

// DocumentURLExpiry lifetime of presigned document links.
const DocumentURLExpiry = 15 * time.Minute

// DeliveryService 送货单
type DeliveryService struct {
	base
	docs DocumentStore
}

func NewDeliveryService(d Deps, docs DocumentStore) *DeliveryService {
	return &DeliveryService{base: newBase(d, "delivery"), docs: docs}
}

type CreateDeliveryNoteReq struct {
	Type             string  `json:"type"`
	Partner          string  `json:"partner"`
	Material         string  `json:"material"`
	WeightKg         float64 `json:"weight_kg"`
	WasteCode        string  `json:"waste_code"`
	MaterialInputID  *string `json:"material_input_id"`
	OutputMaterialID *string `json:"output_material_id"`
}

// Create persists a delivery note. An outgoing note linked to an output ships that
// output in the same transaction; incoming notes never touch outputs.
func (s *DeliveryService) Create(ctx context.Context, actor Actor, req CreateDeliveryNoteReq) (Result[*entity.DeliveryNote], error) {
	var res Result[*entity.DeliveryNote]
	if err := authorize(actor, deliveryRoles, "create delivery notes"); err != nil {
		return res, err
	}

	var errs fieldErrors
	if req.Type != entity.DeliveryTypeIncoming && req.Type != entity.DeliveryTypeOutgoing {
		errs.add("type", "must be incoming or outgoing")
	}
	if strings.TrimSpace(req.Partner) == "" {
		errs.add("partner", "required")
	}
	if strings.TrimSpace(req.Material) == "" {
		errs.add("material", "required")
	}
	if !validWeight(req.WeightKg) {
		errs.add("weight_kg", weightRule)
	}
	if err := errs.err(); err != nil {
		return res, err
	}

	var inputID *string
	if req.MaterialInputID != nil && *req.MaterialInputID != "" {
		input, err := s.repos.MaterialInput.FindByID(ctx, *req.MaterialInputID)
		if err != nil {
			return res, storeError("material input", err)
		}
		inputID = &input.ID
	}
	var output *entity.OutputMaterial
	if req.OutputMaterialID != nil && *req.OutputMaterialID != "" {
		o, err := s.repos.Output.FindByID(ctx, *req.OutputMaterialID)
		if err != nil {
			return res, storeError("output material", err)
		}
		output = o
	}

	code, err := s.nextCode(ctx, PrefixDeliveryNote)
	if err != nil {
		return res, err
	}
	note := &entity.DeliveryNote{
		ID:              uuid.New().String(),
		NoteID:          code,
		Type:            req.Type,
		Partner:         strings.TrimSpace(req.Partner),
		Material:        strings.TrimSpace(req.Material),
		WeightKg:        req.WeightKg,
		WasteCode:       strings.TrimSpace(req.WasteCode),
		MaterialInputID: inputID,
		CreatedBy:       actor.UserID,
	}
	if output != nil {
		note.OutputMaterialID = &output.ID
	}
	ships := note.Type == entity.DeliveryTypeOutgoing && output != nil

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.DeliveryNote.Create(ctx, note); err != nil {
			return storeError("delivery note", err)
		}
		if !ships {
			return nil
		}
		if _, err := tx.Output.FindByIDForUpdate(ctx, output.ID); err != nil {
			return storeError("output material", err)
		}
		return storeError("output material", tx.Output.UpdateStatus(ctx, output.ID, entity.OutputStatusShipped))
	})
	if err != nil {
		return res, err
	}
	res.Primary = note

	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventDeliveryCreated,
		EventDescription: fmt.Sprintf("%s %s: %.3f kg %s, partner %s", note.NoteID, note.Type, note.WeightKg, note.Material, note.Partner),
		EventDetails:     details(map[string]interface{}{"waste_code": note.WasteCode}),
		MaterialInputID:  note.MaterialInputID,
		OutputMaterialID: note.OutputMaterialID,
		DeliveryNoteID:   &note.ID,
	})
	if ships {
		s.logger.Info("output shipped", zap.String("output_id", output.OutputID), zap.String("note_id", note.NoteID))
		s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
			EventType:        entity.EventOutputShipped,
			EventDescription: fmt.Sprintf("%s shipped with %s", output.OutputID, note.NoteID),
			OutputMaterialID: &output.ID,
			DeliveryNoteID:   &note.ID,
		})
	}
	return res, nil
}

// AttachDocument uploads the note's document and records the object path.
func (s *DeliveryService) AttachDocument(ctx context.Context, actor Actor, noteID, filename, contentType string, data []byte) (Result[*entity.DeliveryNote], error) {
	var res Result[*entity.DeliveryNote]
	if err := authorize(actor, deliveryRoles, "attach delivery documents"); err != nil {
		return res, err
	}
	if len(data) == 0 {
		return res, validationError("document is empty")
	}
	note, err := s.repos.DeliveryNote.FindByID(ctx, noteID)
	if err != nil {
		return res, storeError("delivery note", err)
	}

	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	if s.docs == nil {
		return res, errNoDocumentStore
	}
	objectPath := fmt.Sprintf("delivery-notes/%s/%s", note.NoteID, name)
	if err := s.docs.Upload(ctx, objectPath, data, contentType); err != nil {
		return res, &Error{Kind: KindBackend, Message: "document upload failed", Err: err}
	}
	if err := s.repos.DeliveryNote.SetDocumentPath(ctx, note.ID, objectPath); err != nil {
		return res, storeError("delivery note", err)
	}
	note.DocumentPath = objectPath
	res.Primary = note

	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventDocumentAttached,
		EventDescription: fmt.Sprintf("document %s attached to %s", name, note.NoteID),
		MaterialInputID:  note.MaterialInputID,
		OutputMaterialID: note.OutputMaterialID,
		DeliveryNoteID:   &note.ID,
	})
	return res, nil
}

// DocumentURL returns a presigned link to the attached document.
func (s *DeliveryService) DocumentURL(ctx context.Context, noteID string) (string, error) {
	note, err := s.repos.DeliveryNote.FindByID(ctx, noteID)
	if err != nil {
		return "", storeError("delivery note", err)
	}
	if note.DocumentPath == "" {
		return "", notFoundError("delivery document")
	}
	if s.docs == nil {
		return "", errNoDocumentStore
	}
	url, err := s.docs.PublicURL(ctx, note.DocumentPath, DocumentURLExpiry)
	if err != nil {
		return "", &Error{Kind: KindBackend, Message: "presign document failed", Err: err}
	}
	return url, nil
}

// DownloadDocument reads the attached document back from storage and returns
// it with its stored file name.
func (s *DeliveryService) DownloadDocument(ctx context.Context, noteID string) ([]byte, string, error) {
	note, err := s.repos.DeliveryNote.FindByID(ctx, noteID)
	if err != nil {
		return nil, "", storeError("delivery note", err)
	}
	if note.DocumentPath == "" {
		return nil, "", notFoundError("delivery document")
	}
	if s.docs == nil {
		return nil, "", errNoDocumentStore
	}
	data, err := s.docs.Download(ctx, note.DocumentPath)
	if err != nil {
		return nil, "", &Error{Kind: KindBackend, Message: "download document failed", Err: err}
	}
	return data, path.Base(note.DocumentPath), nil
}

func (s *DeliveryService) Get(ctx context.Context, id string) (*entity.DeliveryNote, error) {
	note, err := s.repos.DeliveryNote.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("delivery note", err)
	}
	return note, nil
}

func (s *DeliveryService) List(ctx context.Context, noteType string, page, pageSize int) ([]entity.DeliveryNote, int64, error) {
	items, total, err := s.repos.DeliveryNote.List(ctx, noteType, page, pageSize)
	if err != nil {
		return nil, 0, storeError("delivery note", err)
	}
	return items, total, nil
}
