package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warehouse-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	StoreID     *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// undoable maps an entity type to a constructor for its model. Only these
// entities can be undone; stock movements are reversed through their own
// operations.
var undoable = map[string]func() any{
	"brand":    func() any { return &models.Brand{} },
	"make":     func() any { return &models.Make{} },
	"category": func() any { return &models.Category{} },
	"supplier": func() any { return &models.Supplier{} },
}

// editable columns restored by an update undo
var restoreColumns = map[string][]string{
	"brand":    {"name"},
	"make":     {"name"},
	"category": {"name"},
	"supplier": {"name", "contact_name", "email", "phone", "address"},
}

var ErrAlreadyUndone = errors.New("this action was already undone")

func WriteLog(db *gorm.DB, opts LogOptions) error {
	log := models.AuditLog{
		StoreID:     opts.StoreID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// UndoLog reverts the change recorded by log logID and records the undo.
func UndoLog(db *gorm.DB, logID uint, userID uint, userName string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var log models.AuditLog
		if err := tx.First(&log, "id = ?", logID).Error; err != nil {
			return fmt.Errorf("audit log not found: %w", err)
		}
		if log.IsUndone {
			return ErrAlreadyUndone
		}

		newModel, ok := undoable[log.EntityType]
		if !ok {
			return fmt.Errorf("%s changes cannot be undone", log.EntityType)
		}

		switch log.Action {
		case models.AuditActionCreate:
			if err := tx.Delete(newModel(), "id = ?", log.EntityID).Error; err != nil {
				return fmt.Errorf("delete entity: %w", err)
			}

		case models.AuditActionUpdate:
			if err := restoreEntity(tx, log.EntityType, newModel(), log.EntityID, log.BeforeData); err != nil {
				return fmt.Errorf("restore entity: %w", err)
			}

		case models.AuditActionDelete:
			entity := newModel()
			if err := json.Unmarshal([]byte(log.BeforeData), entity); err != nil {
				return fmt.Errorf("decode entity: %w", err)
			}
			if err := tx.Create(entity).Error; err != nil {
				return fmt.Errorf("recreate entity: %w", err)
			}

		default:
			return fmt.Errorf("%s actions cannot be undone", log.Action)
		}

		now := time.Now()
		log.IsUndone = true
		log.UndoneBy = &userID
		log.UndoneAt = &now
		if err := tx.Save(&log).Error; err != nil {
			return fmt.Errorf("update audit log: %w", err)
		}

		undoLog := models.AuditLog{
			StoreID:     log.StoreID,
			UserID:      userID,
			UserName:    userName,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Undone: %s", log.Description),
			BeforeData:  log.AfterData,
			AfterData:   log.BeforeData,
			Undone:      true,
		}
		if err := tx.Create(&undoLog).Error; err != nil {
			return fmt.Errorf("write undo log: %w", err)
		}
		return nil
	})
}

func restoreEntity(tx *gorm.DB, entityType string, model any, entityID uint, dataJSON string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return err
	}

	// JSON keys are Go field names; map them onto column names.
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(model); err != nil {
		return err
	}
	updates := make(map[string]any)
	for _, col := range restoreColumns[entityType] {
		field := stmt.Schema.LookUpField(col)
		if field == nil {
			continue
		}
		if v, ok := data[field.Name]; ok {
			updates[col] = v
		}
	}
	if len(updates) == 0 {
		return errors.New("nothing to restore")
	}
	return tx.Model(model).Where("id = ?", entityID).Updates(updates).Error
}
