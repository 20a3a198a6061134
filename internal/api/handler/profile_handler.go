package handler

import (
	"context"
	"encoding/json"
	"errors"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProfileStore 用户画像存储的最小接口。
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
	GetProfileByID(ctx context.Context, profileID string) (*models.UserProfile, error)
}

var _ ProfileStore = (*storage.MySQL)(nil)

// ProfileHandler 负责用户画像的HTTP请求。
type ProfileHandler struct {
	store ProfileStore
}

// NewProfileHandler 创建一个新的 ProfileHandler 实例。
func NewProfileHandler(store ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// ProfileRequest 保存用户画像的请求体
type ProfileRequest struct {
	ProfileID       string   `json:"profile_id,omitempty"` // 带ID则更新已有画像
	Name            string   `json:"name" validate:"required"`
	Age             int      `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
	EducationLevel  string   `json:"education_level,omitempty"`
	ExperienceYears int      `json:"experience_years" validate:"gte=0"`
	CurrentField    string   `json:"current_field,omitempty"`
	Location        string   `json:"location,omitempty"`
	CareerStage     string   `json:"career_stage,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	CareerGoals     string   `json:"career_goals,omitempty"`
}

// ProfileResponse 用户画像的响应体
type ProfileResponse struct {
	ProfileID       string   `json:"profile_id"`
	Name            string   `json:"name"`
	Age             int      `json:"age,omitempty"`
	EducationLevel  string   `json:"education_level,omitempty"`
	ExperienceYears int      `json:"experience_years"`
	CurrentField    string   `json:"current_field,omitempty"`
	Location        string   `json:"location,omitempty"`
	CareerStage     string   `json:"career_stage,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	CareerGoals     string   `json:"career_goals,omitempty"`
}

// HandleSaveProfile 保存(或更新)用户画像。
// POST /api/v1/profiles
func (h *ProfileHandler) HandleSaveProfile(ctx context.Context, c *app.RequestContext) {
	var req ProfileRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "画像字段校验失败"})
		return
	}

	profile := &models.UserProfile{
		ProfileID:       req.ProfileID,
		Name:            req.Name,
		Age:             req.Age,
		EducationLevel:  req.EducationLevel,
		ExperienceYears: req.ExperienceYears,
		CurrentField:    req.CurrentField,
		Location:        req.Location,
		CareerStage:     req.CareerStage,
		CareerGoals:     req.CareerGoals,
		InterestsJSON:   marshalStringList(req.Interests),
		SkillsJSON:      marshalStringList(req.Skills),
	}

	if err := h.store.SaveProfile(ctx, profile); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("保存用户画像失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "保存用户画像失败"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"profile_id": profile.ProfileID})
}

// HandleGetProfile 查询用户画像。
// GET /api/v1/profiles/:profile_id
func (h *ProfileHandler) HandleGetProfile(ctx context.Context, c *app.RequestContext) {
	profileID := c.Param("profile_id")
	if profileID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "profile_id 不能为空"})
		return
	}

	profile, err := h.store.GetProfileByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "用户画像不存在"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("profile_id", profileID).Msg("查询用户画像失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询用户画像失败"})
		return
	}

	c.JSON(consts.StatusOK, &ProfileResponse{
		ProfileID:       profile.ProfileID,
		Name:            profile.Name,
		Age:             profile.Age,
		EducationLevel:  profile.EducationLevel,
		ExperienceYears: profile.ExperienceYears,
		CurrentField:    profile.CurrentField,
		Location:        profile.Location,
		CareerStage:     profile.CareerStage,
		Interests:       unmarshalStringList(profile.InterestsJSON),
		Skills:          unmarshalStringList(profile.SkillsJSON),
		CareerGoals:     profile.CareerGoals,
	})
}

func marshalStringList(items []string) datatypes.JSON {
	if len(items) == 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func unmarshalStringList(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	return items
}
