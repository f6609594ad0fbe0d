package service

import (
	"context"
	"fmt"
	"io"

	"memeup_backend/internal/model"
	"memeup_backend/internal/repository"
	"memeup_backend/internal/util"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// ContentDocument 内容导入文件，按 id 幂等写入
type ContentDocument struct {
	Users    []ContentUser    `yaml:"users"`
	Sections []ContentSection `yaml:"sections"`
}

type ContentUser struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
}

type ContentSection struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	ImageURL   string              `yaml:"imageUrl"`
	OrderIndex int                 `yaml:"orderIndex"`
	Status     model.PublishStatus `yaml:"status"`
	Levels     []ContentLevel      `yaml:"levels"`
}

type ContentLevel struct {
	ID                string              `yaml:"id"`
	Name              string              `yaml:"name"`
	ImageURL          string              `yaml:"imageUrl"`
	HeaderText        string              `yaml:"headerText"`
	AnimationImageURL string              `yaml:"animationImageUrl"`
	OrderIndex        int                 `yaml:"orderIndex"`
	TimeLimitSec      *int                `yaml:"timeLimitSec"`
	Status            model.PublishStatus `yaml:"status"`
	Tasks             []ContentTask       `yaml:"tasks"`
}

type ContentTask struct {
	ID                string              `yaml:"id"`
	InternalName      string              `yaml:"internalName"`
	Type              model.TaskType      `yaml:"type"`
	HeaderText        string              `yaml:"headerText"`
	ImageURL          string              `yaml:"imageUrl"`
	ResultImagePath   string              `yaml:"resultImagePath"`
	ResultImageSource string              `yaml:"resultImageSource"`
	TaskImageSource   string              `yaml:"taskImageSource"`
	OrderIndex        int                 `yaml:"orderIndex"`
	TimeLimitSec      *int                `yaml:"timeLimitSec"`
	Points            []int               `yaml:"points"`
	ExplanationText   string              `yaml:"explanationText"`
	Status            model.PublishStatus `yaml:"status"`
	Options           []ContentOption     `yaml:"options"`
}

type ContentOption struct {
	ID            string `yaml:"id"`
	Label         string `yaml:"label"`
	ImageURL      string `yaml:"imageUrl"`
	IsCorrect     bool   `yaml:"isCorrect"`
	CorrectAnswer string `yaml:"correctAnswer"`
}

// ImportResult 导入统计
type ImportResult struct {
	Users           int
	Sections        int
	Levels          int
	Tasks           int
	OptionsInserted int
	OptionsUpdated  int
	OptionsDeleted  int
}

// ParseContent 严格解析，未知字段报错
func ParseContent(r io.Reader) (*ContentDocument, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc ContentDocument
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, fmt.Errorf("parse content: %w", err)
	}
	return &doc, nil
}

// ContentService 内容导入，是本仓库中唯一写入分区、关卡、题目的地方
type ContentService struct {
	Tx        *TxRunner
	LevelRepo *repository.LevelRepository
	TaskRepo  *repository.TaskRepository
	UserRepo  *repository.UserRepository
}

func NewContentService(tx *TxRunner, levelRepo *repository.LevelRepository, taskRepo *repository.TaskRepository, userRepo *repository.UserRepository) *ContentService {
	return &ContentService{Tx: tx, LevelRepo: levelRepo, TaskRepo: taskRepo, UserRepo: userRepo}
}

func (s *ContentService) Import(ctx context.Context, doc *ContentDocument) (*ImportResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var result *ImportResult
	err := s.Tx.Run(ctx, "content.import", func(tx *gorm.DB) error {
		result = &ImportResult{}
		levelRepo := s.LevelRepo.WithTx(tx)
		taskRepo := s.TaskRepo.WithTx(tx)

		for _, u := range doc.Users {
			user := &model.User{Username: u.Username, Email: u.Email, Role: model.Player}
			user.ID = u.ID
			if err := s.UserRepo.WithTx(tx).Upsert(user); err != nil {
				return fmt.Errorf("upsert user %s: %w", u.ID, err)
			}
			result.Users++
		}

		for _, cs := range doc.Sections {
			section := &model.Section{
				Name:       cs.Name,
				ImageURL:   cs.ImageURL,
				OrderIndex: cs.OrderIndex,
				Status:     publishStatus(cs.Status),
			}
			section.ID = cs.ID
			if err := levelRepo.UpsertSection(section); err != nil {
				return fmt.Errorf("upsert section %s: %w", cs.ID, err)
			}
			result.Sections++

			for _, cl := range cs.Levels {
				level := &model.Level{
					SectionID:         section.ID,
					Name:              cl.Name,
					ImageURL:          cl.ImageURL,
					HeaderText:        cl.HeaderText,
					AnimationImageURL: cl.AnimationImageURL,
					OrderIndex:        cl.OrderIndex,
					TimeLimitSec:      cl.TimeLimitSec,
					Status:            publishStatus(cl.Status),
				}
				level.ID = cl.ID
				if err := levelRepo.UpsertLevel(level); err != nil {
					return fmt.Errorf("upsert level %s: %w", cl.ID, err)
				}
				result.Levels++

				for _, ct := range cl.Tasks {
					task := ct.toModel(level.ID)
					if err := taskRepo.UpsertTask(task); err != nil {
						return fmt.Errorf("upsert task %s: %w", ct.ID, err)
					}
					diff, err := taskRepo.ReplaceOptions(task.ID, ct.optionModels())
					if err != nil {
						return fmt.Errorf("replace options of task %s: %w", ct.ID, err)
					}
					result.Tasks++
					result.OptionsInserted += len(diff.Insert)
					result.OptionsUpdated += len(diff.Update)
					result.OptionsDeleted += len(diff.Delete)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func publishStatus(s model.PublishStatus) model.PublishStatus {
	if s == "" {
		return model.Draft
	}
	return s
}

func (ct ContentTask) toModel(levelID string) *model.Task {
	task := &model.Task{
		LevelID:           levelID,
		InternalName:      ct.InternalName,
		Type:              ct.Type,
		HeaderText:        ct.HeaderText,
		ImageURL:          ct.ImageURL,
		ResultImagePath:   ct.ResultImagePath,
		ResultImageSource: ct.ResultImageSource,
		TaskImageSource:   ct.TaskImageSource,
		OrderIndex:        ct.OrderIndex,
		TimeLimitSec:      ct.TimeLimitSec,
		ExplanationText:   ct.ExplanationText,
		Status:            publishStatus(ct.Status),
	}
	task.ID = ct.ID
	if task.Type == "" {
		task.Type = model.TaskTypeMeme
	}
	points := [3]int{}
	copy(points[:], ct.Points)
	task.PointsAttempt1, task.PointsAttempt2, task.PointsAttempt3 = points[0], points[1], points[2]
	return task
}

func (ct ContentTask) optionModels() []model.TaskOption {
	options := make([]model.TaskOption, 0, len(ct.Options))
	for _, o := range ct.Options {
		options = append(options, model.TaskOption{
			ID:            o.ID,
			Label:         o.Label,
			ImageURL:      o.ImageURL,
			IsCorrect:     o.IsCorrect,
			CorrectAnswer: o.CorrectAnswer,
		})
	}
	return options
}

// Validate id 必须是 UUID，分值最多三档且不能为负；通过后 id 统一写回规范形式
func (d *ContentDocument) Validate() error {
	for i := range d.Users {
		u := &d.Users[i]
		id, ok := util.ParseID(u.ID)
		if !ok {
			return fmt.Errorf("user %q: invalid id", u.ID)
		}
		u.ID = id
	}
	for i := range d.Sections {
		sec := &d.Sections[i]
		id, ok := util.ParseID(sec.ID)
		if !ok {
			return fmt.Errorf("section %q: invalid id", sec.ID)
		}
		sec.ID = id
		if sec.Name == "" {
			return fmt.Errorf("section %s: name is required", sec.ID)
		}
		for j := range sec.Levels {
			l := &sec.Levels[j]
			id, ok := util.ParseID(l.ID)
			if !ok {
				return fmt.Errorf("level %q: invalid id", l.ID)
			}
			l.ID = id
			if l.Name == "" {
				return fmt.Errorf("level %s: name is required", l.ID)
			}
			for k := range l.Tasks {
				if err := l.Tasks[k].validate(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (ct *ContentTask) validate() error {
	id, ok := util.ParseID(ct.ID)
	if !ok {
		return fmt.Errorf("task %q: invalid id", ct.ID)
	}
	ct.ID = id
	if len(ct.Points) > 3 {
		return fmt.Errorf("task %s: at most 3 attempt point values are allowed", ct.ID)
	}
	for _, p := range ct.Points {
		if p < 0 {
			return fmt.Errorf("task %s: points must not be negative", ct.ID)
		}
	}
	for i := range ct.Options {
		o := &ct.Options[i]
		if o.ID == "" {
			continue
		}
		id, ok := util.ParseID(o.ID)
		if !ok {
			return fmt.Errorf("task %s: option %q has invalid id", ct.ID, o.ID)
		}
		o.ID = id
	}
	return nil
}
