package prompts

const verdictInstruction = "Respond with ONLY 'YES' or 'NO'."

const relevanceSystem = `You are an expert at determining if a citation's content is relevant to a sentence.
Your task is to determine if the cited content supports or is directly relevant to the claims made in the sentence.
Consider:
1. Topic alignment between sentence and citation
2. Specific claims and their support in the citation
3. Temporal relevance (if applicable)
4. Methodological relevance (if applicable)
5. Scope alignment (broad vs specific claims)

` + verdictInstruction

const relevanceUser = `Is the citation content relevant to the sentence?

Examples:
1. Sentence: California courts have ruled on liability claims related to wildfires caused by utility companies [5709e6d9-8945-4025-af43-9fb6ca0a7f11].
Citation: Lawsuits filed against utility companies in California criticized the companies for their role in causing wildfires and discussed damages and settlements to be paid out to victims.
Answer (YES/NO): YES

2. Sentence: The development of electric vehicles has reduced carbon emissions in urban areas [8e45c80f-f63b-4eca-9976-79185811cd7d].
Citation: Although electric cars are increasingly popular, there is a continued role for gas-powered cars.
Answer (YES/NO): NO

3. Sentence: Trophy hunting of lions has been linked to declines in certain lion populations in Africa [56b44b0f-fd8d-4d81-bae9-7f8d80e6b745].
Citation: A study clearly demonstrated the correlation between trophy hunting practices and the decline of lion populations in specific African regions.
Answer (YES/NO): YES

4. Sentence: The long-term use of statins can lead to serious side effects, including liver damage [8eac052b-6764-4092-af4f-63acd7ea8c71].
Citation: Statins have been shown to demonstrate cholesterol-lowering properties.
Answer (YES/NO): NO

5. Sentence: Studies show that excessive use of social media is linked to increased anxiety and depression among teenagers [9a75cd2b-2f99-4b9b-9fe5-28797f229e01].
Citation: Research has examined the impact of social media on adolescent mental health, highlighting a significant correlation between heavy social media use and higher levels of anxiety and depression.
Answer (YES/NO): YES

6. Sentence: Satellite communications have significantly improved our ability to gather data for weather forecasting [a9f4ae31-e2fc-45f5-b064-87d94c1cc059].
Citation: Commercial space tourism is expected to become more popular in the coming decades.
Answer (YES/NO): NO

Sentence: {{.Sentence}}
Citation: {{.Citation}}

Answer (YES/NO):`

const nuggetAgreementSystem = `You are an expert at determining if statements agree with given information.
Your task is to determine if a sentence's claims align with a provided information nugget.
Consider:
1. Core meaning and implications
2. Factual consistency
3. Semantic equivalence
4. Logical entailment
5. Scope of claims
6. Contextual meaning
7. Direct vs indirect agreement
8. Quantitative precision

` + verdictInstruction

const nuggetAgreementUser = `Does the sentence agree with the information nugget?

Examples:
1. Sentence: The new vaccine showed a 90% efficacy rate in clinical trials.
Question: What was the vaccine's effectiveness?
Answer: 90%
Do the sentence's claims agree with the nugget question answer (YES/NO): YES

2. Sentence: The research indicates a 30% increase in global temperatures over the last century largely due to pollution.
Question: Why did global temperatures increase by 30%?
Answer: Increased government spending
Do the sentence's claims agree with the nugget question answer (YES/NO): NO

3. Sentence: Winter the Dolphin lost her tail due to becoming entangled in a crab trap and became a symbol for resilience.
Question: How did Winter the Dolphin lose her tail?
Answer: Becoming entangled in a crab trap
Do the sentence's claims agree with the nugget question answer (YES/NO): YES

4. Sentence: Maya Angelou won the Nobel Prize in Literature in 1995.
Question: When did Maya Angelou win the Nobel Prize in Literature?
Answer: Maya Angelou never won the Nobel Prize in Literature
Do the sentence's claims agree with the nugget question answer (YES/NO): NO

5. Sentence: Refugees crossing the English Channel usually take large boats that are not typically safe or properly equipped.
Question: How do refugees typically attempt to move from France to England?
Answer: Refugees cross the English Channel safely using high-quality boats
Do the sentence's claims agree with the nugget question answer (YES/NO): NO

6. Sentence: The discovery of water on Mars has opened up possibilities for past life on the planet.
Question: What has the discovery of water on Mars suggested about its history?
Answer: The possibility of past life
Do the sentence's claims agree with the nugget question answer (YES/NO): YES

Sentence: {{.Sentence}}
Question: {{.Question}}
Answer: {{.Answer}}
Do the sentence's claims agree with the nugget question answer (YES/NO):`

const requiresNegativeSystem = `You are an expert at identifying negative assertions in text.
Your task is to determine if a sentence contains any negative claims, findings, or results.
Consider:
1. Direct negations (no, not, never)
2. Negative findings (failed to, unable to)
3. Contradictions or opposing results
4. Absence of effects or relationships
5. Limitations or shortcomings
6. Negative comparisons

` + verdictInstruction

const requiresNegativeUser = `Does this sentence contain any negative assertions?

Examples:
1. Sentence: Air quality is not influenced by pollution.
Answer (YES/NO): YES

2. Sentence: Lady Gaga has had a substantial impact on the music industry.
Answer (YES/NO): NO

3. Sentence: Pesticides are not dangerous to human health.
Answer (YES/NO): YES

4. Sentence: Solar power has failed to provide a reliable solution for energy storage.
Answer (YES/NO): YES

5. Sentence: The environmental study showed promising results for new irrigation techniques.
Answer (YES/NO): NO

6. Sentence: Fans failed to act responsibly after their football team lost the game.
Answer (YES/NO): YES

Sentence: {{.Sentence}}

Answer (YES/NO):`

const requiresCitationSystem = `You are an expert at determining if statements require academic citations.
Your task is to determine if a sentence makes claims that should be supported by citations.
Consider:
1. Empirical claims or findings
2. Statistical data or numbers
3. Historical facts or dates
4. Specific methodologies or techniques
5. Theoretical frameworks
6. Expert opinions or analyses
7. Comparative statements
8. State-of-the-art claims

` + verdictInstruction

const requiresCitationUser = `Does this sentence require a citation to support its claims?

Examples:
1. Sentence: Blue Origin's New Shepard rocket successfully completed its first crewed flight in 2021.
Answer (YES/NO): YES

2. Sentence: The movie The Titanic is thus one of the most important works in modern film.
Answer (YES/NO): NO

3. Sentence: Recent studies have shown a 15% increase in global temperatures.
Answer (YES/NO): YES

4. Sentence: Planting trees is one way children can play a role in positive climate action.
Answer (YES/NO): NO

5. Sentence: The winner of the New York Marathon is an excellent runner.
Answer (YES/NO): NO

6. Sentence: Novichok was used on the Skripals in England in 2018.
Answer (YES/NO): YES

Sentence: {{.Sentence}}

Answer (YES/NO):`

const firstInstanceSystem = `You are an expert at identifying novel claims in text.
Your task is to determine if a sentence is the first instance of a claim in a sequence of sentences.
Consider:
1. Core claim or finding being presented
2. Previous mentions of similar claims
3. Specificity vs. generality of claims
4. Variations or elaborations of previous claims
5. Novel aspects vs. restatements
6. Context and scope of claims

` + verdictInstruction

const firstInstanceUser = `Is this sentence the first instance of its main claim in the text?

Examples:
1. Sentence: Solar power adoption has led to significant cost reductions in energy production.
Previous: []
Answer (YES/NO): YES

2. Sentence: China's Belt and Road Initiative aims to enhance global trade connections.
Previous: ["China has made major investments in its domestic economy in recent years."]
Answer (YES/NO): YES

3. Sentence: The United States signed the Paris Agreement to combat climate change in 2016.
Previous: ["Climate change activists were thrilled by the signing of the Paris Agreement."]
Answer (YES/NO): NO

4. Sentence: The United States has imposed sanctions on Russia in response to its actions in Ukraine.
Previous: ["U.S. sanctions have wounded the Russian economy.", "Sanctions for the War in Ukraine have negatively impacted the Russian economy."]
Answer (YES/NO): NO

5. Sentence: Climate change negatively impacts crop yields.
Previous: ["Global temperatures are rising.", "Sea levels have increased."]
Answer (YES/NO): YES

6. Sentence: The deer's fur color was confirmed to be caused by a rare genetic trait called albinism.
Previous: ["Albinism can leave animals like deer with a distinctive white fur."]
Answer (YES/NO): NO

Sentence: {{.Sentence}}
Previous Sentences:
{{join .Previous "\n"}}

Answer (YES/NO):`
