package model

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "super_admin"
)

type StructureCategory string

const (
	StructureCategoryRestaurant StructureCategory = "restaurant"
	StructureCategoryCommerce   StructureCategory = "commerce"
	StructureCategoryArtisan    StructureCategory = "artisan"
	StructureCategoryService    StructureCategory = "service"
)

type AnnonceStatus string

const (
	AnnonceStatusDraft     AnnonceStatus = "draft"
	AnnonceStatusPublished AnnonceStatus = "published"
	AnnonceStatusExpired   AnnonceStatus = "expired"
)

type PromotionKind string

const (
	PromotionKindPercent PromotionKind = "percent"
	PromotionKindAmount  PromotionKind = "amount"
)
