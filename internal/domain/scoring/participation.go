package scoring

// ParticipationScore rates network engagement in [0,1]: plugin compliance,
// player activity and registration status.
func ParticipationScore(cfg Config, mc *MinerContext) float64 {
	r := mc.latest()
	if r == nil {
		return 0
	}

	score := cfg.PartCompliance*complianceScore(cfg, mc) +
		cfg.PartPlayers*playerScore(cfg, mc) +
		cfg.PartRegistration*registrationScore(mc)
	return clampUnit(score)
}

// complianceScore requires the full plugin set: any missing required plugin
// zeroes the sub-score. Extra plugins earn bonus credit; an external
// compliance flag collapses whatever remains.
func complianceScore(cfg Config, mc *MinerContext) float64 {
	r := mc.latest()
	if !r.Payload.HasPlugins(cfg.RequiredPlugins) {
		return 0
	}

	extra := len(r.Payload.Plugins) - len(cfg.RequiredPlugins)
	bonus := float64(extra) * complianceBonusPer
	if bonus < 0 {
		bonus = 0
	}
	if bonus > complianceBonusCap {
		bonus = complianceBonusCap
	}

	score := complianceBase + bonus
	if mc.ComplianceFlagged {
		score *= complianceFlaggedMul
	}
	return clampUnit(score)
}

// playerScore rates active players against the anti-whale cap, shaped by
// occupancy: healthy mid-range occupancy earns a bonus, a near-full server
// is discounted as likely throttling.
func playerScore(cfg Config, mc *MinerContext) float64 {
	r := mc.latest()
	count := r.Payload.PlayerCount()
	if count <= 0 {
		return 0
	}
	capped := count
	if capped > cfg.MaxPlayersWeight {
		capped = cfg.MaxPlayersWeight
	}
	score := float64(capped) / float64(cfg.MaxPlayersWeight)

	occupancy := r.Payload.PlayerRatio()
	switch {
	case occupancy > crowdedOccupancy:
		score *= crowdedOccupancyMul
	case count >= minPlayersForBonus && occupancy >= optimalOccupancyLow && occupancy <= optimalOccupancyHigh:
		score *= optimalOccupancyMul
	}
	return clampUnit(score)
}

func registrationScore(mc *MinerContext) float64 {
	if mc.Registered {
		return 1
	}
	return 0
}
