package sqldb

import (
	"context"
	"errors"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error, mapped error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return mapped
	}
	return err
}

func (r *Repository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{Username: value.Username, PasswordHash: value.PasswordHash, Role: string(value.Role)}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrDuplicateUser
		}
		return domain.User{}, err
	}
	return toUser(m), nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return toUser(m), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return toUser(m), nil
}

func (r *Repository) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	rows := make([]UserModel, 0)
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		result = append(result, toUser(m))
	}
	return result, nil
}

func (r *Repository) CreateSoftware(ctx context.Context, value domain.Software) (domain.Software, error) {
	m := SoftwareModel{Name: value.Name, Description: value.Description, AccessLevels: delimitedList(value.AccessLevels)}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Software{}, err
	}
	return toSoftware(m), nil
}

func (r *Repository) ListSoftware(ctx context.Context) ([]domain.Software, error) {
	rows := make([]SoftwareModel, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Software, 0, len(rows))
	for _, m := range rows {
		result = append(result, toSoftware(m))
	}
	return result, nil
}

func (r *Repository) GetSoftwareByID(ctx context.Context, id uint) (domain.Software, error) {
	var m SoftwareModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Software{}, notFound(err, domain.ErrCatalogNotFound)
	}
	return toSoftware(m), nil
}

func (r *Repository) UpdateSoftware(ctx context.Context, id uint, patch domain.SoftwarePatch) (domain.Software, error) {
	var m SoftwareModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err, domain.ErrCatalogNotFound)
		}
		if patch.Name != nil {
			m.Name = *patch.Name
		}
		if patch.Description != nil {
			m.Description = *patch.Description
		}
		if patch.AccessLevels != nil {
			m.AccessLevels = delimitedList(*patch.AccessLevels)
		}
		return tx.Save(&m).Error
	})
	if err != nil {
		return domain.Software{}, err
	}
	return toSoftware(m), nil
}

// DeleteSoftware removes a catalog entry. Requests referencing it are removed
// by the foreign key cascade.
func (r *Repository) DeleteSoftware(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&SoftwareModel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCatalogNotFound
	}
	return nil
}

func (r *Repository) CreateRequest(ctx context.Context, value domain.AccessRequest) (domain.AccessRequest, error) {
	status := value.Status
	if status == "" {
		status = domain.StatusPending
	}
	m := RequestModel{
		UserID:     value.UserID,
		SoftwareID: value.SoftwareID,
		AccessType: string(value.AccessType),
		Reason:     value.Reason,
		Status:     string(status),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.AccessRequest{}, err
	}
	return toRequest(m), nil
}

type requestRow struct {
	ID                   uint
	UserID               uint
	SoftwareID           uint
	AccessType           string
	Reason               string
	Status               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Username             string
	UserRole             string
	SoftwareName         string
	SoftwareDescription  string
	SoftwareAccessLevels delimitedList
}

const expandedRequestSelect = `
SELECT r.id,
       r.user_id,
       r.software_id,
       r.access_type,
       r.reason,
       r.status,
       r.created_at,
       r.updated_at,
       COALESCE(u.username, '') AS username,
       COALESCE(u.role, '') AS user_role,
       COALESCE(s.name, '') AS software_name,
       COALESCE(s.description, '') AS software_description,
       s.access_levels AS software_access_levels
FROM requests r
LEFT JOIN users u ON u.id = r.user_id
LEFT JOIN softwares s ON s.id = r.software_id
`

func (r *Repository) GetRequest(ctx context.Context, id uint, expand bool) (domain.AccessRequest, error) {
	if !expand {
		var m RequestModel
		if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
			return domain.AccessRequest{}, notFound(err, domain.ErrRequestNotFound)
		}
		return toRequest(m), nil
	}

	var m requestRow
	if err := r.db.WithContext(ctx).Raw(expandedRequestSelect+"WHERE r.id = ?", id).Scan(&m).Error; err != nil {
		return domain.AccessRequest{}, err
	}
	if m.ID == 0 {
		return domain.AccessRequest{}, domain.ErrRequestNotFound
	}
	return m.toDomain(), nil
}

// ListRequests returns requests newest first, optionally narrowed to one
// owner. Relations are joined only when the query asks for them.
func (r *Repository) ListRequests(ctx context.Context, query domain.RequestQuery) ([]domain.AccessRequest, error) {
	if !query.Expand {
		q := r.db.WithContext(ctx).Model(&RequestModel{})
		if query.UserID != nil {
			q = q.Where("user_id = ?", *query.UserID)
		}
		rows := make([]RequestModel, 0)
		if err := q.Order("id DESC").Find(&rows).Error; err != nil {
			return nil, err
		}
		result := make([]domain.AccessRequest, 0, len(rows))
		for _, m := range rows {
			result = append(result, toRequest(m))
		}
		return result, nil
	}

	sql := expandedRequestSelect
	args := make([]any, 0, 1)
	if query.UserID != nil {
		sql += "WHERE r.user_id = ?\n"
		args = append(args, *query.UserID)
	}
	sql += "ORDER BY r.id DESC"

	rows := make([]requestRow, 0)
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.AccessRequest, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) UpdateRequestStatus(ctx context.Context, id uint, status domain.RequestStatus) error {
	res := r.db.WithContext(ctx).Model(&RequestModel{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *Repository) DeleteRequest(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&RequestModel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *Repository) CountRequests(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&RequestModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) CreateAuditLog(ctx context.Context, value domain.AuditLog) error {
	m := AuditLogModel{ActorUserID: value.ActorUserID, Action: value.Action, TargetType: value.TargetType, TargetID: value.TargetID, Metadata: value.Metadata}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *Repository) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	type row struct {
		ID            uint
		ActorUserID   *uint
		ActorUsername string
		Action        string
		TargetType    string
		TargetID      *uint
		Metadata      string
		CreatedAt     time.Time
	}
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT a.id,
       a.actor_user_id,
       COALESCE(u.username, '') AS actor_username,
       a.action,
       a.target_type,
       a.target_id,
       COALESCE(a.metadata, '') AS metadata,
       a.created_at
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_user_id
ORDER BY a.id DESC
LIMIT ?
`, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.AuditRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.AuditRecord{
			ID:            m.ID,
			ActorUserID:   m.ActorUserID,
			ActorUsername: m.ActorUsername,
			Action:        m.Action,
			TargetType:    m.TargetType,
			TargetID:      m.TargetID,
			Metadata:      m.Metadata,
			CreatedAt:     m.CreatedAt,
		})
	}
	return result, nil
}

func toUser(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toSoftware(m SoftwareModel) domain.Software {
	levels := []string(m.AccessLevels)
	if levels == nil {
		levels = []string{}
	}
	return domain.Software{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		AccessLevels: levels,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toRequest(m RequestModel) domain.AccessRequest {
	return domain.AccessRequest{
		ID:         m.ID,
		UserID:     m.UserID,
		SoftwareID: m.SoftwareID,
		AccessType: domain.AccessType(m.AccessType),
		Reason:     m.Reason,
		Status:     domain.RequestStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (m requestRow) toDomain() domain.AccessRequest {
	out := toRequest(RequestModel{
		ID:         m.ID,
		UserID:     m.UserID,
		SoftwareID: m.SoftwareID,
		AccessType: m.AccessType,
		Reason:     m.Reason,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	})
	if m.Username != "" {
		out.User = &domain.User{ID: m.UserID, Username: m.Username, Role: domain.Role(m.UserRole)}
	}
	if m.SoftwareName != "" {
		levels := []string(m.SoftwareAccessLevels)
		if levels == nil {
			levels = []string{}
		}
		out.Software = &domain.Software{ID: m.SoftwareID, Name: m.SoftwareName, Description: m.SoftwareDescription, AccessLevels: levels}
	}
	return out
}
