package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/clubstack/memberhub/internal/cache"
	"github.com/clubstack/memberhub/internal/config"
	"github.com/clubstack/memberhub/internal/domain/member"
	"github.com/clubstack/memberhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type MemberStore interface {
	Create(ctx context.Context, req member.CreateMemberRequest) (member.Member, error)
	GetByID(ctx context.Context, id string) (member.Member, error)
	List(ctx context.Context, filter member.ListMembersFilter) ([]member.Member, int, error)
	Update(ctx context.Context, id string, req member.UpdateMemberRequest) (member.Member, error)
	Delete(ctx context.Context, id string) error
}

type MembersHandler struct {
	repo      MemberStore
	listCache *cache.Cache
}

// listCache may be nil; reads then always hit the store.
func NewMembersHandler(repo MemberStore, listCache *cache.Cache) *MembersHandler {
	return &MembersHandler{repo: repo, listCache: listCache}
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type listMembersResponse struct {
	Items []member.Member `json:"items"`
	Count int             `json:"count"`
}

func (h *MembersHandler) ListMembers(ctx *gin.Context) {
	filter := member.ListMembersFilter{Limit: defaultListLimit}

	var namePtr, birthPtr *string

	if name := ctx.Query("name"); name != "" {
		filter.Name = &name
		namePtr = &name
	}

	if raw := ctx.Query("birth_date"); raw != "" {
		d, err := member.ParseDate(raw)

		if err != nil {
			RespondBadRequest(ctx, "birth_date must be YYYY-MM-DD", nil)
			return
		}

		filter.BirthDate = &d
		birthPtr = &raw
	}

	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)

		if err != nil || limit < 1 || limit > maxListLimit {
			RespondBadRequest(ctx, "limit must be between 1 and 1000", nil)
			return
		}

		filter.Limit = limit
	}

	key := utils.BuildMembersListCacheKey(filter.Limit, namePtr, birthPtr)

	if h.listCache != nil {
		if v, ok := h.listCache.Get(key); ok {
			if resp, ok := v.(listMembersResponse); ok {
				ctx.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	members, count, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list members")
		return
	}

	resp := listMembersResponse{Items: members, Count: count}

	if h.listCache != nil {
		h.listCache.Set(key, resp)
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *MembersHandler) GetMemberById(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "member id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	m, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}

		RespondInternal(ctx, "Could not fetch member")
		return
	}

	ctx.JSON(http.StatusOK, m)
}

func (h *MembersHandler) CreateMember(ctx *gin.Context) {
	var req member.CreateMemberRequest

	if !BindJSONAs(ctx, &req, http.StatusUnprocessableEntity) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	m, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, member.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "A member with this email already exists.")
			return
		}

		RespondInternal(ctx, "Could not create member")
		return
	}

	h.invalidateListCache()

	ctx.JSON(http.StatusCreated, m)
}

func (h *MembersHandler) UpdateMember(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "member id must be a valid UUID", nil)
		return
	}

	var req member.UpdateMemberRequest

	if !BindJSONAs(ctx, &req, http.StatusUnprocessableEntity) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	m, err := h.repo.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, member.ErrNotFound):
			RespondNotFound(ctx, "Member not found")
		case errors.Is(err, member.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "A member with this email already exists.")
		default:
			RespondInternal(ctx, "Could not update member")
		}
		return
	}

	h.invalidateListCache()

	ctx.JSON(http.StatusOK, m)
}

func (h *MembersHandler) DeleteMember(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "member id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			RespondNotFound(ctx, "Member not found")
			return
		}

		RespondInternal(ctx, "Could not delete member")
		return
	}

	h.invalidateListCache()

	ctx.Status(http.StatusNoContent)
}

func (h *MembersHandler) invalidateListCache() {
	if h.listCache != nil {
		h.listCache.Clear()
	}
}
